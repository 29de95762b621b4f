package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/voxline/custodyline/dialog/contract"
	lookupx "github.com/voxline/custodyline/dialog/lookup"
	machinex "github.com/voxline/custodyline/dialog/machine"
	statex "github.com/voxline/custodyline/dialog/state"
)

// PerformLookup runs the identity lookup when the recap was confirmed. The
// call happens outside the session lock; the result is applied through a
// second atomic update and discarded if the session was purged meanwhile.
func PerformLookup(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	m *machinex.Machine,
	orch *lookupx.Orchestrator,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if !in.Outcome.NeedsLookup || in.Session == nil {
		return in, nil
	}

	req := contractx.LookupRequest{
		FirstName:   in.Session.FirstName.Value,
		LastName:    in.Session.LastName.Value,
		DateOfBirth: in.Session.DateOfBirth.Value,
	}

	res := orch.Perform(ctx, req)

	updated, err := store.Update(ctx, in.Event.CallID, func(sess *statex.CallSession) error {
		return m.ApplyLookup(sess, res)
	})
	if errors.Is(err, statex.ErrSessionNotFound) || errors.Is(err, machinex.ErrNotAwaiting) {
		// Session purged (or restarted) while the lookup ran; drop the
		// result on the floor.
		log.Warn().Str("call_id", in.Event.CallID).Msg("discarding lookup result for purged session")
		in.Session = nil
		return in, nil
	}
	if err != nil {
		return nil, err
	}

	in.Session = updated
	return in, nil
}
