package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/pkg/logging"
)

type capturingSender struct {
	sent []EmailMessage
	err  error
}

func (c *capturingSender) Send(ctx context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestNotifyLeadCreated(t *testing.T) {
	sender := &capturingSender{}
	svc := NewService(sender, "owner@example.com", logging.Default())

	svc.NotifyLeadCreated(context.Background(), &crm.Lead{
		ID:     "lead-1",
		Phone:  "+15551234567",
		Source: "phone_call",
	})

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "owner@example.com" {
		t.Errorf("to = %q", msg.To)
	}
	if !strings.Contains(msg.Body, "+15551234567") || !strings.Contains(msg.Body, "lead-1") {
		t.Errorf("body missing lead details: %q", msg.Body)
	}
}

func TestNotifyLeadCreatedDisabled(t *testing.T) {
	sender := &capturingSender{}
	svc := NewService(sender, "", logging.Default())
	svc.NotifyLeadCreated(context.Background(), &crm.Lead{ID: "lead-1"})
	if len(sender.sent) != 0 {
		t.Fatal("no email expected when alert address is unset")
	}

	svc = NewService(nil, "owner@example.com", logging.Default())
	svc.NotifyLeadCreated(context.Background(), &crm.Lead{ID: "lead-1"}) // must not panic
}

func TestNotifyLeadCreatedSwallowsSendErrors(t *testing.T) {
	sender := &capturingSender{err: errors.New("quota exceeded")}
	svc := NewService(sender, "owner@example.com", logging.Default())
	svc.NotifyLeadCreated(context.Background(), &crm.Lead{ID: "lead-1"}) // logged, not raised
	if len(sender.sent) != 1 {
		t.Fatal("send should still be attempted")
	}
}
