package crm

import (
	"strings"
	"time"

	"github.com/oakline/callbridge/internal/phone"
)

// Lead is a prospective customer known to the CRM.
type Lead struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	PhoneDigits string    `json:"phone_digits"`
	Email       string    `json:"email"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// Customer is a converted lead with at least one closed project.
type Customer struct {
	ID                string    `json:"id"`
	OrgID             string    `json:"org_id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	PhoneDigits       string    `json:"phone_digits"`
	Email             string    `json:"email"`
	ConvertedFromLead string    `json:"converted_from_lead,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateLeadRequest carries the fields needed to create a lead.
type CreateLeadRequest struct {
	OrgID  string `json:"-"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Source string `json:"source"`
}

// Validate checks the request and resolves the normalized phone key.
func (r *CreateLeadRequest) Validate() (phone.Normalized, error) {
	if strings.TrimSpace(r.OrgID) == "" {
		return "", ErrMissingOrgID
	}
	key, err := phone.Normalize(r.Phone)
	if err != nil {
		return "", ErrInvalidPhone
	}
	return key, nil
}
