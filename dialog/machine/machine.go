// Package machine holds the dialogue state machine: one transition function
// per call state, dispatched from a table. All retry policy lives here.
package machine

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
	statex "github.com/voxline/custodyline/dialog/state"
	validatex "github.com/voxline/custodyline/dialog/validate"
)

const defaultMaxRetries = 3

// RetryConfirmAll keys the retry counter for the final recap step.
const RetryConfirmAll = "confirm_all"

type Config struct {
	// MaxRetries is how many consecutive unusable inputs a single step
	// tolerates before the call is given up.
	MaxRetries int `split_words:"true" default:"3"`
}

// Outcome tells the engine what, beyond the session mutation itself, an event
// requires.
type Outcome struct {
	// NeedsLookup is set when the caller confirmed the full recap and the
	// identity lookup must now run.
	NeedsLookup bool
}

var (
	ErrNilSession     = errors.New("nil session")
	ErrNotAwaiting    = errors.New("session is not awaiting a lookup result")
	ErrMissingHandler = errors.New("no transition registered for state")
)

// Machine applies events to sessions. Stateless; a single instance serves all
// calls.
type Machine struct {
	validator  *validatex.Validator
	maxRetries int
}

func New(validator *validatex.Validator, cfg Config) (*Machine, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Machine{validator: validator, maxRetries: maxRetries}, nil
}

type transitionFunc func(m *Machine, sess *statex.CallSession, in reply, now time.Time) (Outcome, error)

// transitions is the dispatch table: state -> handler. States without an
// entry (terminal, mid-lookup) re-issue their current prompt on any event.
var transitions = map[statex.CallState]transitionFunc{
	statex.StateAwaitingConsent:     (*Machine).stepConsent,
	statex.StateCollectingFirstName: collectField(statex.FieldFirstName, statex.StateConfirmingFirstName),
	statex.StateConfirmingFirstName: confirmField(statex.FieldFirstName, statex.StateCollectingFirstName, statex.StateCollectingLastName),
	statex.StateCollectingLastName:  collectField(statex.FieldLastName, statex.StateConfirmingLastName),
	statex.StateConfirmingLastName:  confirmField(statex.FieldLastName, statex.StateCollectingLastName, statex.StateCollectingDate),
	statex.StateCollectingDate:      collectField(statex.FieldDateOfBirth, statex.StateConfirmingDate),
	statex.StateConfirmingDate:      confirmField(statex.FieldDateOfBirth, statex.StateCollectingDate, statex.StateConfirmingAll),
	statex.StateConfirmingAll:       (*Machine).stepConfirmAll,
	statex.StateDelivering:          (*Machine).stepDelivering,
}

// Step applies one transport event to sess. The caller is expected to run it
// inside the store's per-call mutator so the whole transition is atomic.
func (m *Machine) Step(sess *statex.CallSession, ev contractx.Event, now time.Time) (Outcome, error) {
	if sess == nil {
		return Outcome{}, ErrNilSession
	}
	sess.Touch(now)

	// Hangup wins from any state, including terminal ones.
	if ev.Type == contractx.EventHangup {
		sess.End(statex.StateEnded, statex.EndHangup)
		return Outcome{}, nil
	}

	if sess.State.Terminal() {
		return Outcome{}, nil
	}

	// A start event (or a gather that arrived with nothing in it) re-issues
	// the current prompt rather than counting against the caller.
	in := parseReply(ev)
	if ev.Type == contractx.EventStart || in.empty() {
		return Outcome{}, nil
	}

	fn, ok := transitions[sess.State]
	if !ok {
		// LookupInProgress and any future quiet states: nothing for the
		// caller to answer, keep the current prompt.
		return Outcome{}, nil
	}
	return fn(m, sess, in, now)
}

// ApplyLookup records the result of the dispatched lookup and moves the
// session toward delivery. Rejects sessions that are not mid-lookup, which is
// how a result for an already-purged-and-recreated call gets discarded.
func (m *Machine) ApplyLookup(sess *statex.CallSession, res contractx.LookupResult) error {
	if sess == nil {
		return ErrNilSession
	}
	if sess.State != statex.StateLookupInProgress {
		return fmt.Errorf("%w: state=%s", ErrNotAwaiting, sess.State)
	}
	if err := sess.SetLookup(res); err != nil {
		return err
	}

	if res.Status == contractx.LookupFailed {
		sess.End(statex.StateEnded, statex.EndLookupUnavailable)
		return nil
	}
	sess.State = statex.StateDelivering
	return nil
}

/* ----------------------------- transitions ------------------------------ */

func (m *Machine) stepConsent(sess *statex.CallSession, in reply, now time.Time) (Outcome, error) {
	switch in.classify() {
	case replyAffirmative:
		sess.ResetRetry(statex.RetryConsent)
		sess.PromptHint = ""
		sess.State = statex.StateCollectingFirstName
	case replyNegative:
		sess.End(statex.StateDeclined, statex.EndDeclined)
	default:
		if sess.IncRetry(statex.RetryConsent) >= m.maxRetries {
			// Exhausting consent retries is treated as abandonment, not an
			// error.
			sess.End(statex.StateDeclined, statex.EndDeclined)
		}
	}
	return Outcome{}, nil
}

// collectField builds the transition for a Collecting* state.
func collectField(field statex.Field, confirming statex.CallState) transitionFunc {
	return func(m *Machine, sess *statex.CallSession, in reply, now time.Time) (Outcome, error) {
		fv, err := sess.Field(field)
		if err != nil {
			return Outcome{}, err
		}

		normalized, err := m.validator.Validate(field, in.raw, now)
		if err != nil {
			var invalid *validatex.InvalidError
			if !errors.As(err, &invalid) {
				return Outcome{}, err
			}
			sess.PromptHint = string(invalid.Reason)
			if sess.IncRetry(string(field)) >= m.maxRetries {
				sess.End(statex.StateEnded, statex.EndRetriesExceeded)
			}
			return Outcome{}, nil
		}

		fv.SetPending(normalized)
		sess.ResetRetry(string(field))
		sess.PromptHint = ""
		sess.State = confirming
		return Outcome{}, nil
	}
}

// confirmField builds the transition for a Confirming* state. A negative
// answer sends the caller back to redo just this field, with its retry
// counter reset so the redo carries no penalty.
func confirmField(field statex.Field, collecting, next statex.CallState) transitionFunc {
	return func(m *Machine, sess *statex.CallSession, in reply, now time.Time) (Outcome, error) {
		fv, err := sess.Field(field)
		if err != nil {
			return Outcome{}, err
		}

		switch in.classify() {
		case replyAffirmative:
			if err := fv.Confirm(); err != nil {
				return Outcome{}, err
			}
			sess.ResetRetry(string(field))
			sess.PromptHint = ""
			sess.State = next
		case replyNegative:
			fv.Clear()
			sess.ResetRetry(string(field))
			sess.PromptHint = ""
			sess.State = collecting
		default:
			if sess.IncRetry(string(field)) >= m.maxRetries {
				sess.End(statex.StateEnded, statex.EndRetriesExceeded)
			}
		}
		return Outcome{}, nil
	}
}

func (m *Machine) stepConfirmAll(sess *statex.CallSession, in reply, now time.Time) (Outcome, error) {
	switch in.classify() {
	case replyAffirmative:
		if !sess.AllConfirmed() {
			return Outcome{}, fmt.Errorf("%w: recap confirmed with unconfirmed fields", statex.ErrInconsistentSession)
		}
		sess.ResetRetry(RetryConfirmAll)
		sess.PromptHint = ""
		sess.State = statex.StateLookupInProgress
		return Outcome{NeedsLookup: true}, nil
	case replyNegative:
		// Full restart of collection; consent stands.
		sess.ClearAllFields()
		sess.ResetRetry(RetryConfirmAll)
		sess.PromptHint = ""
		sess.State = statex.StateCollectingFirstName
		return Outcome{}, nil
	default:
		if sess.IncRetry(RetryConfirmAll) >= m.maxRetries {
			sess.End(statex.StateEnded, statex.EndRetriesExceeded)
		}
		return Outcome{}, nil
	}
}

func (m *Machine) stepDelivering(sess *statex.CallSession, in reply, now time.Time) (Outcome, error) {
	// The result instruction hangs the call up; any further event just
	// closes the session out.
	sess.End(statex.StateEnded, statex.EndCompleted)
	return Outcome{}, nil
}
