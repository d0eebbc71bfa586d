package notify

import (
	"context"
	"fmt"

	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/pkg/logging"
)

// Service triggers operator notifications. It only triggers delivery; the
// channel itself (SendGrid here) owns formatting limits and retries.
type Service struct {
	email      EmailSender
	alertEmail string
	logger     *logging.Logger
}

// NewService creates a notification service. alertEmail is the operator
// address that receives new-lead alerts; empty disables them.
func NewService(email EmailSender, alertEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, alertEmail: alertEmail, logger: logger}
}

// NotifyLeadCreated alerts the operator that an inbound call created a lead
// no one had on file. Failures are logged, never escalated: the lead and
// its interaction are already recorded.
func (s *Service) NotifyLeadCreated(ctx context.Context, lead *crm.Lead) {
	if s == nil || s.email == nil || s.alertEmail == "" || lead == nil {
		return
	}
	msg := EmailMessage{
		To:      s.alertEmail,
		Subject: fmt.Sprintf("New phone lead: %s", lead.Phone),
		Body: fmt.Sprintf(
			"A new lead was created from an inbound call.\n\nPhone: %s\nSource: %s\nLead ID: %s\n",
			lead.Phone, lead.Source, lead.ID,
		),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("lead-created notification failed", "error", err, "lead_id", lead.ID)
	}
}
