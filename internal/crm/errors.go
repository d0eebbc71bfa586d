package crm

import "errors"

var (
	// ErrLeadNotFound is returned when no lead matches the lookup.
	ErrLeadNotFound = errors.New("crm: lead not found")

	// ErrCustomerNotFound is returned when no customer matches the lookup.
	ErrCustomerNotFound = errors.New("crm: customer not found")

	// ErrMissingOrgID is returned when a write request has no org scope.
	ErrMissingOrgID = errors.New("crm: org id is required")

	// ErrInvalidPhone is returned when a lead is created without a
	// normalizable phone number.
	ErrInvalidPhone = errors.New("crm: a normalizable phone number is required")
)
