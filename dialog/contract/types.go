package contract

import "time"

// EventType classifies an inbound transport webhook for one call.
type EventType string

const (
	EventStart  EventType = "start"         // call answered, no input yet
	EventGather EventType = "gather-result" // transcribed speech and/or DTMF digits
	EventHangup EventType = "hangup"        // caller (or carrier) ended the call
)

// Event is one turn of a call as delivered by the transport layer. Speech has
// already been transcribed before the core sees it.
type Event struct {
	CallID   string    `json:"call_id"`
	Type     EventType `json:"type"`
	RawInput string    `json:"raw_input,omitempty"` // transcribed speech
	Digits   string    `json:"digits,omitempty"`    // DTMF, if any
}

// PromptAction tells the transport what to do after speaking.
type PromptAction string

const (
	ActionGather   PromptAction = "speak-and-gather"
	ActionHangup   PromptAction = "speak-and-hangup"
	ActionTransfer PromptAction = "speak-and-transfer"
)

// PromptInstruction is the core's only output: text to speak plus what the
// transport should do next.
type PromptInstruction struct {
	Action PromptAction `json:"action"`
	Text   string       `json:"text"`
	// ExpectedField names the field the next gather answers, when gathering.
	ExpectedField string `json:"expected_field,omitempty"`
}

// LookupRequest carries a fully-normalized identity triple to the lookup
// collaborator.
type LookupRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"` // ISO calendar date, 2006-01-02
}

// LookupStatus is the coarse outcome of one lookup attempt.
type LookupStatus string

const (
	LookupSuccess  LookupStatus = "success"
	LookupNotFound LookupStatus = "not_found"
	LookupFailed   LookupStatus = "failed"
)

// LookupResult is what the orchestrator hands back to the state machine.
// StatusText is the spoken summary on success ("In custody, Facility X");
// FailReason records why a failed attempt failed (timeout, unreachable).
type LookupResult struct {
	Status     LookupStatus `json:"status"`
	StatusText string       `json:"status_text,omitempty"`
	FailReason string       `json:"fail_reason,omitempty"`
}

// SessionSnapshot is a logging/debugging projection of a live session. It is
// never persisted anywhere.
type SessionSnapshot struct {
	CallID      string    `json:"call_id"`
	CreatedAt   time.Time `json:"created_at"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	State       string    `json:"state"`
}
