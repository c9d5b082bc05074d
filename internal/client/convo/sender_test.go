package convo

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/chattwins/chattwins/internal/client/platform"
)

type fakeAPI struct {
	fakeLoader
	sendFn   func(platform.SendMessageInput) (platform.Message, error)
	uploadFn func(bucket, path string) (string, error)
	sent     []platform.SendMessageInput
}

func (f *fakeAPI) SendMessage(ctx context.Context, in platform.SendMessageInput) (platform.Message, error) {
	f.sent = append(f.sent, in)
	return f.sendFn(in)
}

func (f *fakeAPI) Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (string, error) {
	if f.uploadFn == nil {
		return "http://files.local/" + bucket + "/" + path, nil
	}
	return f.uploadFn(bucket, path)
}

func ackAs(id string, sec int64) func(platform.SendMessageInput) (platform.Message, error) {
	return func(in platform.SendMessageInput) (platform.Message, error) {
		return platform.Message{
			ID:         id,
			SenderID:   self,
			ReceiverID: in.ReceiverID,
			Content:    in.Content,
			ImageURL:   in.ImageURL,
			CreatedAt:  at(sec),
		}, nil
	}
}

func TestSendEmptyMessage(t *testing.T) {
	api := &fakeAPI{sendFn: ackAs("never", 1)}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	_, err := s.Send(context.Background(), "   \n\t ", nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if len(api.sent) != 0 {
		t.Fatalf("empty send reached the server: %+v", api.sent)
	}
	if got := v.Messages(); len(got) != 0 {
		t.Fatalf("empty send left entries: %v", ids(got))
	}
}

func TestSendReplacesTempInPlace(t *testing.T) {
	api := &fakeAPI{sendFn: ackAs("srv-1", 50)}
	v := NewView(api, self, partner)
	v.Apply(msg("m1", partner, self, 10))
	s := NewSender(api, v, self, partner)
	s.now = func() time.Time { return time.Unix(40, 0) }

	got, err := s.Send(context.Background(), "  hi  ", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ID != "srv-1" || got.Content != "hi" {
		t.Fatalf("unexpected ack: %+v", got)
	}
	wantIDs(t, v, "m1", "srv-1")
	entries := v.Messages()
	if entries[1].Status != StatusConfirmed {
		t.Fatalf("reconciled entry status = %q", entries[1].Status)
	}
	if api.sent[0].Content != "hi" {
		t.Fatalf("content not trimmed before send: %q", api.sent[0].Content)
	}
}

func TestSendPendingVisibleDuringFlight(t *testing.T) {
	api := &fakeAPI{}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	api.sendFn = func(in platform.SendMessageInput) (platform.Message, error) {
		// Server call is in flight; the optimistic entry must already show.
		entries := v.Messages()
		if len(entries) != 1 || entries[0].Status != StatusPending {
			t.Fatalf("no pending entry during flight: %+v", entries)
		}
		if !strings.HasPrefix(entries[0].ID, "temp-") {
			t.Fatalf("optimistic id = %q", entries[0].ID)
		}
		return ackAs("srv-1", 50)(in)
	}
	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSendDropsTempWhenLiveFeedWinsRace(t *testing.T) {
	api := &fakeAPI{}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	api.sendFn = func(in platform.SendMessageInput) (platform.Message, error) {
		m := platform.Message{ID: "srv-1", SenderID: self, ReceiverID: partner, Content: in.Content, CreatedAt: at(50)}
		v.Apply(m) // realtime insert lands before the HTTP ack
		return m, nil
	}
	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	wantIDs(t, v, "srv-1")
}

func TestSendFailureRollsBackTemp(t *testing.T) {
	api := &fakeAPI{sendFn: func(in platform.SendMessageInput) (platform.Message, error) {
		return platform.Message{}, errors.New("boom")
	}}
	v := NewView(api, self, partner)
	v.Apply(msg("m1", partner, self, 10))
	s := NewSender(api, v, self, partner)

	_, err := s.Send(context.Background(), "hello", nil)
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}
	wantIDs(t, v, "m1")
}

func TestSendUploadFailureAbortsBeforeInsert(t *testing.T) {
	api := &fakeAPI{
		sendFn:   ackAs("srv-1", 50),
		uploadFn: func(bucket, path string) (string, error) { return "", errors.New("storage down") },
	}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	_, err := s.Send(context.Background(), "caption", &Attachment{
		Name: "pic.png", ContentType: "image/png", Data: strings.NewReader("png"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(api.sent) != 0 {
		t.Fatalf("insert attempted after failed upload: %+v", api.sent)
	}
	if got := v.Messages(); len(got) != 0 {
		t.Fatalf("temp entry not rolled back: %v", ids(got))
	}
}

func TestSendAttachmentLinksUploadedURL(t *testing.T) {
	api := &fakeAPI{sendFn: ackAs("srv-1", 50)}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	if _, err := s.Send(context.Background(), "", &Attachment{
		Name: "pic.png", ContentType: "image/png", Data: strings.NewReader("png"),
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	in := api.sent[0]
	if in.ImageURL == "" || !strings.HasPrefix(in.ImageURL, "http://files.local/messages/"+self+"/") {
		t.Fatalf("image url = %q", in.ImageURL)
	}
	if !strings.HasSuffix(in.ImageURL, "-pic.png") {
		t.Fatalf("image url should carry the original name: %q", in.ImageURL)
	}
}

func TestSendFiresOnSent(t *testing.T) {
	api := &fakeAPI{sendFn: ackAs("srv-1", 50)}
	v := NewView(api, self, partner)
	s := NewSender(api, v, self, partner)

	fired := 0
	s.OnSent = func() { fired++ }

	if _, err := s.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fired != 1 {
		t.Fatalf("OnSent fired %d times", fired)
	}

	api.sendFn = func(in platform.SendMessageInput) (platform.Message, error) {
		return platform.Message{}, errors.New("boom")
	}
	_, _ = s.Send(context.Background(), "again", nil)
	if fired != 1 {
		t.Fatalf("OnSent fired on failure")
	}
}
