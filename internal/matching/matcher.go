// Package matching resolves normalized phone numbers to known CRM entities.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/internal/phone"
)

// Kind tags the variant of a match result.
type Kind string

const (
	NoMatch         Kind = "no_match"
	MatchedLead     Kind = "lead"
	MatchedCustomer Kind = "customer"
)

// Result is the outcome of resolving one phone key. At most one of LeadID
// and CustomerID is set; a customer match always wins because a customer is
// an already-converted lead.
type Result struct {
	Kind       Kind
	LeadID     string
	CustomerID string
	Name       string
}

// EntityID returns the id of whichever entity matched, or "".
func (r Result) EntityID() string {
	switch r.Kind {
	case MatchedLead:
		return r.LeadID
	case MatchedCustomer:
		return r.CustomerID
	default:
		return ""
	}
}

type repository interface {
	FindLeadByPhone(ctx context.Context, orgID string, key phone.Normalized) (*crm.Lead, error)
	FindCustomerByPhone(ctx context.Context, orgID string, key phone.Normalized) (*crm.Customer, error)
}

// Matcher resolves callers against the CRM's leads and customers.
type Matcher struct {
	repo repository
}

// New creates a Matcher over the given repository.
func New(repo repository) *Matcher {
	if repo == nil {
		panic("matching: repository required")
	}
	return &Matcher{repo: repo}
}

// Match resolves the key to a customer first, then a lead, then NoMatch.
// Not-found results from the repository are expected states, not errors;
// any other repository failure escalates to the caller.
func (m *Matcher) Match(ctx context.Context, orgID string, key phone.Normalized) (Result, error) {
	cust, err := m.repo.FindCustomerByPhone(ctx, orgID, key)
	if err == nil {
		return Result{Kind: MatchedCustomer, CustomerID: cust.ID, Name: cust.Name}, nil
	}
	if !errors.Is(err, crm.ErrCustomerNotFound) {
		return Result{}, fmt.Errorf("matching: customer lookup: %w", err)
	}

	lead, err := m.repo.FindLeadByPhone(ctx, orgID, key)
	if err == nil {
		return Result{Kind: MatchedLead, LeadID: lead.ID, Name: lead.Name}, nil
	}
	if !errors.Is(err, crm.ErrLeadNotFound) {
		return Result{}, fmt.Errorf("matching: lead lookup: %w", err)
	}

	return Result{Kind: NoMatch}, nil
}
