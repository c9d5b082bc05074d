package convo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/google/uuid"
)

var (
	// ErrEmptyMessage means there was nothing to send: whitespace-only text
	// and no attachment.
	ErrEmptyMessage = errors.New("nothing to send")

	// ErrSendFailed wraps a server-side insert failure. The optimistic entry
	// has already been rolled back; the caller may retry with the same text.
	ErrSendFailed = errors.New("message send failed")
)

const tempIDPrefix = "temp-"

// API is the slice of the platform client the sender needs.
type API interface {
	SendMessage(ctx context.Context, in platform.SendMessageInput) (platform.Message, error)
	Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (string, error)
}

// Attachment is an image to upload and link into the message.
type Attachment struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// Sender runs the optimistic send pipeline for one conversation: append a
// pending entry immediately, upload any attachment, insert on the server,
// then reconcile the pending entry with the confirmed row.
type Sender struct {
	api       API
	view      *View
	selfID    string
	partnerID string

	// OnSent runs after each successful send, before Send returns. The
	// unread tracker hooks this to mark the chat opened.
	OnSent func()

	now func() time.Time
}

func NewSender(api API, view *View, selfID, partnerID string) *Sender {
	return &Sender{
		api:       api,
		view:      view,
		selfID:    selfID,
		partnerID: partnerID,
		now:       time.Now,
	}
}

func (s *Sender) Send(ctx context.Context, text string, att *Attachment) (platform.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return platform.Message{}, ErrEmptyMessage
	}

	tempID := tempIDPrefix + uuid.NewString()
	s.view.appendPending(Entry{
		Message: platform.Message{
			ID:         tempID,
			SenderID:   s.selfID,
			ReceiverID: s.partnerID,
			Content:    text,
			CreatedAt:  utils.FormatTime(s.now()),
		},
		Status: StatusPending,
	})

	imageURL := ""
	if att != nil {
		key := s.selfID + "/" + uuid.NewString() + "-" + att.Name
		url, err := s.api.Upload(ctx, "messages", key, att.ContentType, att.Data)
		if err != nil {
			s.view.removeTemp(tempID)
			return platform.Message{}, fmt.Errorf("upload attachment: %w", err)
		}
		imageURL = url
	}

	msg, err := s.api.SendMessage(ctx, platform.SendMessageInput{
		ReceiverID: s.partnerID,
		Content:    text,
		ImageURL:   imageURL,
	})
	if err != nil {
		s.view.removeTemp(tempID)
		return platform.Message{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	s.view.resolveTemp(tempID, msg)
	if s.OnSent != nil {
		s.OnSent()
	}
	return msg, nil
}
