package callrail

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType names a webhook in the call lifecycle.
type EventType string

const (
	EventPreCall         EventType = "pre_call"
	EventPostCall        EventType = "post_call"
	EventCallModified    EventType = "call_modified"
	EventRoutingComplete EventType = "routing_complete"
)

var (
	// ErrMissingCallID is returned when a payload carries no call identifier.
	ErrMissingCallID = errors.New("callrail: payload missing call id")
	// ErrUnknownEventType is returned for an event type outside the lifecycle.
	ErrUnknownEventType = errors.New("callrail: unknown event type")
)

// CallEvent is one lifecycle notification for a single call, produced by a
// validating parse of the webhook body or synthesized by the importer.
type CallEvent struct {
	Type            EventType
	CallID          string
	CallerNumber    string
	TrackingNumber  string
	StartedAt       time.Time
	DurationSeconds int
	RecordingURL    string
	Transcription   string
	Answered        bool
	Voicemail       bool
}

// InboundOutcome reports whether the event represents an inbound call that
// was answered or went to voicemail. Routing diagnostics never qualify.
func (e CallEvent) InboundOutcome() bool {
	switch e.Type {
	case EventPreCall:
		return true
	case EventPostCall, EventCallModified:
		return e.Answered || e.Voicemail
	default:
		return false
	}
}

// flexInt accepts both JSON numbers and numeric strings; the provider's
// legacy webhook format quotes durations.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("callrail: invalid integer %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

type webhookPayload struct {
	CallID         string    `json:"call_id"`
	ID             string    `json:"id"`
	CallerNumber   string    `json:"caller_number"`
	CallerNumRaw   string    `json:"callernum"`
	TrackingNumber string    `json:"tracking_number"`
	TrackingRaw    string    `json:"trackingnum"`
	Duration       flexInt   `json:"duration"`
	Recording      string    `json:"recording"`
	Transcription  string    `json:"transcription"`
	Answered       bool      `json:"answered"`
	Voicemail      bool      `json:"voicemail"`
	StartTime      time.Time `json:"start_time"`
}

func (p webhookPayload) callID() string {
	if v := strings.TrimSpace(p.CallID); v != "" {
		return v
	}
	return strings.TrimSpace(p.ID)
}

func (p webhookPayload) caller() string {
	if v := strings.TrimSpace(p.CallerNumber); v != "" {
		return v
	}
	return strings.TrimSpace(p.CallerNumRaw)
}

func (p webhookPayload) tracking() string {
	if v := strings.TrimSpace(p.TrackingNumber); v != "" {
		return v
	}
	return strings.TrimSpace(p.TrackingRaw)
}

// ParseEvent decodes a webhook body into a CallEvent of the given type.
// A payload without a call identifier is rejected: every downstream record
// is keyed on it.
func ParseEvent(eventType EventType, body []byte) (CallEvent, error) {
	switch eventType {
	case EventPreCall, EventPostCall, EventCallModified, EventRoutingComplete:
	default:
		return CallEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return CallEvent{}, fmt.Errorf("callrail: decode %s payload: %w", eventType, err)
	}
	callID := payload.callID()
	if callID == "" {
		return CallEvent{}, ErrMissingCallID
	}
	return CallEvent{
		Type:            eventType,
		CallID:          callID,
		CallerNumber:    payload.caller(),
		TrackingNumber:  payload.tracking(),
		StartedAt:       payload.StartTime,
		DurationSeconds: int(payload.Duration),
		RecordingURL:    payload.Recording,
		Transcription:   payload.Transcription,
		Answered:        payload.Answered,
		Voicemail:       payload.Voicemail,
	}, nil
}
