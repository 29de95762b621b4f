package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

// CallState is where a call currently sits in the collection script.
type CallState string

const (
	StateAwaitingConsent     CallState = "awaiting_consent"
	StateCollectingFirstName CallState = "collecting_first_name"
	StateConfirmingFirstName CallState = "confirming_first_name"
	StateCollectingLastName  CallState = "collecting_last_name"
	StateConfirmingLastName  CallState = "confirming_last_name"
	StateCollectingDate      CallState = "collecting_date"
	StateConfirmingDate      CallState = "confirming_date"
	StateConfirmingAll       CallState = "confirming_all"
	StateLookupInProgress    CallState = "lookup_in_progress"
	StateDelivering          CallState = "delivering"
	StateEnded               CallState = "ended"
	StateDeclined            CallState = "declined"
)

// Terminal reports whether no further caller input is possible from s.
func (s CallState) Terminal() bool {
	return s == StateEnded || s == StateDeclined
}

// Field identifies one collected identity field.
type Field string

const (
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldDateOfBirth Field = "date_of_birth"
)

// RetryConsent is the retry-counter key for the consent step; field steps use
// the field name as their key.
const RetryConsent = "consent"

type FieldStatus string

const (
	FieldUnset     FieldStatus = "unset"
	FieldPending   FieldStatus = "pending"   // normalized, awaiting caller confirmation
	FieldConfirmed FieldStatus = "confirmed" // caller said yes
)

// FieldValue is the tri-state holder for one identity field. Value always
// holds the normalized form once the status leaves unset.
type FieldValue struct {
	Status FieldStatus `json:"status"`
	Value  string      `json:"value,omitempty"`
}

func (f *FieldValue) SetPending(normalized string) {
	f.Status = FieldPending
	f.Value = normalized
}

func (f *FieldValue) Clear() {
	f.Status = FieldUnset
	f.Value = ""
}

// Confirm promotes a pending value. Confirming an unset or already-confirmed
// field is a programming error, not caller behavior.
func (f *FieldValue) Confirm() error {
	if f.Status != FieldPending {
		return fmt.Errorf("%w: status=%s", ErrFieldNotPending, f.Status)
	}
	f.Status = FieldConfirmed
	return nil
}

// EndReason records why a session reached a terminal state. Formatter wording
// depends on it.
type EndReason string

const (
	EndNone              EndReason = ""
	EndCompleted         EndReason = "completed"
	EndDeclined          EndReason = "declined"
	EndRetriesExceeded   EndReason = "retries_exceeded"
	EndLookupUnavailable EndReason = "lookup_unavailable"
	EndHangup            EndReason = "hangup"
	EndExpired           EndReason = "expired"
	EndFault             EndReason = "fault"
)

var (
	ErrFieldNotPending     = errors.New("field is not pending confirmation")
	ErrUnknownField        = errors.New("unknown field")
	ErrLookupAlreadySet    = errors.New("lookup result already set")
	ErrFieldsNotConfirmed  = errors.New("not all fields confirmed")
	ErrNilSession          = errors.New("session is nil")
	ErrInvalidCallID       = errors.New("call id is empty")
	ErrInconsistentSession = errors.New("session state inconsistent")
)

// CallSession is all state the core holds for one live call. It exists only
// between the call's first event and its end; nothing here is durable.
type CallSession struct {
	CallID string    `json:"call_id"`
	State  CallState `json:"state"`

	FirstName   FieldValue `json:"first_name"`
	LastName    FieldValue `json:"last_name"`
	DateOfBirth FieldValue `json:"date_of_birth"`

	// Retries counts consecutive unusable inputs per step, keyed by
	// RetryConsent or a Field name. Cleared for a field when the caller
	// redoes it.
	Retries map[string]int `json:"retries,omitempty"`

	Lookup    *contractx.LookupResult `json:"lookup,omitempty"`
	EndReason EndReason               `json:"end_reason,omitempty"`

	// PromptHint tells the formatter why the last input was rejected so the
	// re-prompt can clarify. Cleared whenever the state advances.
	PromptHint string `json:"prompt_hint,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func NewCallSession(callID string, now time.Time) *CallSession {
	return &CallSession{
		CallID:         callID,
		State:          StateAwaitingConsent,
		Retries:        make(map[string]int, 4),
		CreatedAt:      now.UTC(),
		LastActivityAt: now.UTC(),
	}
}

func (s *CallSession) Touch(now time.Time) {
	s.LastActivityAt = now.UTC()
}

// Expired reports whether the session has been idle past timeout.
func (s *CallSession) Expired(now time.Time, timeout time.Duration) bool {
	return now.UTC().Sub(s.LastActivityAt) > timeout
}

// Field returns the value holder for f.
func (s *CallSession) Field(f Field) (*FieldValue, error) {
	switch f {
	case FieldFirstName:
		return &s.FirstName, nil
	case FieldLastName:
		return &s.LastName, nil
	case FieldDateOfBirth:
		return &s.DateOfBirth, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
}

// AllConfirmed reports whether every identity field has been confirmed by the
// caller.
func (s *CallSession) AllConfirmed() bool {
	return s.FirstName.Status == FieldConfirmed &&
		s.LastName.Status == FieldConfirmed &&
		s.DateOfBirth.Status == FieldConfirmed
}

// ClearAllFields wipes the three identity fields and their retry counters.
// Used when the caller rejects the final recap.
func (s *CallSession) ClearAllFields() {
	s.FirstName.Clear()
	s.LastName.Clear()
	s.DateOfBirth.Clear()
	for _, f := range []Field{FieldFirstName, FieldLastName, FieldDateOfBirth} {
		s.ResetRetry(string(f))
	}
}

func (s *CallSession) ensureRetries() {
	if s.Retries == nil {
		s.Retries = make(map[string]int, 4)
	}
}

// IncRetry bumps and returns the counter for one step key.
func (s *CallSession) IncRetry(key string) int {
	s.ensureRetries()
	s.Retries[key]++
	return s.Retries[key]
}

func (s *CallSession) RetryCount(key string) int {
	if s.Retries == nil {
		return 0
	}
	return s.Retries[key]
}

func (s *CallSession) ResetRetry(key string) {
	if s.Retries == nil {
		return
	}
	delete(s.Retries, key)
}

// SetLookup records the lookup outcome. It may be set once per session and
// only after every field is confirmed.
func (s *CallSession) SetLookup(res contractx.LookupResult) error {
	if s.Lookup != nil {
		return ErrLookupAlreadySet
	}
	if !s.AllConfirmed() {
		return ErrFieldsNotConfirmed
	}
	s.Lookup = &res
	return nil
}

// End moves the session to a terminal state, keeping the first recorded
// reason if End is called twice.
func (s *CallSession) End(state CallState, reason EndReason) {
	if !state.Terminal() {
		state = StateEnded
	}
	s.State = state
	if s.EndReason == EndNone {
		s.EndReason = reason
	}
}

// Snapshot projects the session for logging. Never persist the result.
func (s *CallSession) Snapshot() contractx.SessionSnapshot {
	return contractx.SessionSnapshot{
		CallID:      s.CallID,
		CreatedAt:   s.CreatedAt,
		FirstName:   s.FirstName.Value,
		LastName:    s.LastName.Value,
		DateOfBirth: s.DateOfBirth.Value,
		State:       string(s.State),
	}
}

// Validate checks invariants that must hold for any stored session.
func (s *CallSession) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.CallID == "" {
		return ErrInvalidCallID
	}
	if s.Lookup != nil && !s.AllConfirmed() {
		return fmt.Errorf("%w: lookup result without confirmed fields", ErrInconsistentSession)
	}
	switch s.State {
	case StateLookupInProgress, StateDelivering:
		if !s.AllConfirmed() {
			return fmt.Errorf("%w: state=%s without confirmed fields", ErrInconsistentSession, s.State)
		}
	}
	return nil
}
