package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/voxline/custodyline/dialog/contract"
	statex "github.com/voxline/custodyline/dialog/state"
)

// EnsureSession loads or creates the call's session. A hangup for an unknown
// call deliberately creates nothing: there is nothing left to purge.
func EnsureSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Event.Type == contractx.EventHangup {
		sess, err := store.Get(ctx, in.Event.CallID)
		if errors.Is(err, statex.ErrSessionNotFound) {
			return in, nil
		}
		if err != nil {
			return nil, err
		}
		in.Session = sess
		return in, nil
	}

	sess, err := store.Create(ctx, in.Event.CallID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	return in, nil
}
