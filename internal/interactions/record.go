package interactions

import "time"

// TypePhoneCall is the interaction type this subsystem writes.
const TypePhoneCall = "phone_call"

// Record is one interaction tied to a provider call identifier. Exactly one
// of LeadID and CustomerID is set when the caller matched an entity; both
// are empty for unmatched calls that warranted recording anyway.
type Record struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"org_id"`
	CallID          string    `json:"call_id"`
	LeadID          string    `json:"lead_id,omitempty"`
	CustomerID      string    `json:"customer_id,omitempty"`
	InteractionType string    `json:"interaction_type"`
	DurationSeconds int       `json:"duration_seconds"`
	RecordingURL    string    `json:"recording_url,omitempty"`
	Transcription   string    `json:"transcription,omitempty"`
	Answered        bool      `json:"answered"`
	CallerNumber    string    `json:"caller_number"`
	TrackingNumber  string    `json:"tracking_number"`
	OccurredAt      time.Time `json:"occurred_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntityType names which entity the record is linked to: "lead",
// "customer", or "" when unmatched.
func (r Record) EntityType() string {
	switch {
	case r.CustomerID != "":
		return "customer"
	case r.LeadID != "":
		return "lead"
	default:
		return ""
	}
}

// EntityID returns the linked entity id, or "".
func (r Record) EntityID() string {
	if r.CustomerID != "" {
		return r.CustomerID
	}
	return r.LeadID
}
