// Package nodes holds the per-event pipeline steps the engine compiles into
// its graph.
package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
	machinex "github.com/voxline/custodyline/dialog/machine"
	statex "github.com/voxline/custodyline/dialog/state"
)

var ErrInvalidCallID = errors.New("event call id is empty")

type GraphInput struct {
	Event contractx.Event
}

type GraphOutput struct {
	Prompt contractx.PromptInstruction
}

// GraphState is threaded through the pipeline for one event.
type GraphState struct {
	Event contractx.Event
	Now   time.Time

	// Session is the post-transition session, nil only for a hangup on a
	// call we no longer know.
	Session *statex.CallSession
	Outcome machinex.Outcome

	// PromptState is the state the final prompt is rendered for. Usually
	// Session.State, but delivery captures it before the purge.
	PromptState statex.CallState
}

// ValidateEvent checks the inbound event and stamps the pipeline clock. An
// unknown event type is coerced to a start event so a confused transport gets
// the current prompt re-issued instead of a crash.
func ValidateEvent(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	ev := in.Event
	ev.CallID = strings.TrimSpace(ev.CallID)
	if ev.CallID == "" {
		return nil, ErrInvalidCallID
	}

	switch ev.Type {
	case contractx.EventStart, contractx.EventGather, contractx.EventHangup:
	default:
		ev.Type = contractx.EventStart
	}

	return &GraphState{
		Event: ev,
		Now:   nowFn().UTC(),
	}, nil
}
