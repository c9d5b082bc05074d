package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email through SendGrid. With no API key
// configured it is disabled and every send is a silent no-op; account
// creation must not depend on email delivery.
type Mailer struct {
	apiKey string
	from   string
}

func New(apiKey, from string) *Mailer {
	return &Mailer{apiKey: apiKey, from: from}
}

func (m *Mailer) Enabled() bool {
	return m.apiKey != "" && m.from != ""
}

func (m *Mailer) SendWelcome(email string) error {
	if !m.Enabled() {
		return nil
	}
	from := mail.NewEmail("ChatTwins", m.from)
	to := mail.NewEmail("", email)
	subject := "Welcome to ChatTwins"
	plain := "Your ChatTwins account is ready. Log in to set up your profile and start chatting."
	msg := mail.NewSingleEmail(from, subject, to, plain, "")

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.Send(msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
