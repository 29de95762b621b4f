package nodes

import (
	"context"
	"fmt"

	contractx "github.com/voxline/custodyline/dialog/contract"
	machinex "github.com/voxline/custodyline/dialog/machine"
	statex "github.com/voxline/custodyline/dialog/state"
)

// ApplyTransition runs the state machine for this event inside the store's
// per-call mutator, so the whole load-step-save is atomic for this call.
func ApplyTransition(ctx context.Context, in *GraphState, store statex.Store, m *machinex.Machine) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		// Hangup for an unknown call: nothing to transition.
		return in, nil
	}

	var outcome machinex.Outcome
	updated, err := store.Update(ctx, in.Event.CallID, func(sess *statex.CallSession) error {
		out, err := m.Step(sess, in.Event, in.Now)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	in.Session = updated
	in.Outcome = outcome
	return in, nil
}
