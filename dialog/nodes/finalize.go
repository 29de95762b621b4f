package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/voxline/custodyline/dialog/contract"
	statex "github.com/voxline/custodyline/dialog/state"
)

// Finalize captures the state the prompt renders for and purges the session
// once the call is over. Delivery counts as over: the result instruction ends
// the call, so its data must not outlive this event.
func Finalize(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		in.PromptState = statex.StateEnded
		return in, nil
	}

	in.PromptState = in.Session.State

	purge := in.Session.State.Terminal()
	if in.Session.State == statex.StateDelivering {
		in.Session.End(statex.StateEnded, statex.EndCompleted)
		purge = true
	}
	if !purge {
		return in, nil
	}

	if err := store.Delete(ctx, in.Event.CallID); err != nil {
		return nil, err
	}
	log.Info().
		Str("call_id", in.Event.CallID).
		Str("state", string(in.PromptState)).
		Str("end_reason", string(in.Session.EndReason)).
		Msg("call session purged")
	return in, nil
}
