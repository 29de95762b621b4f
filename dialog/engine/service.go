// Package engine wires the dialogue pipeline together and owns the session
// lifecycle: one HandleEvent per inbound webhook turn, plus the idle-session
// sweeper.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/voxline/custodyline/dialog/contract"
	lookupx "github.com/voxline/custodyline/dialog/lookup"
	machinex "github.com/voxline/custodyline/dialog/machine"
	nodex "github.com/voxline/custodyline/dialog/nodes"
	promptx "github.com/voxline/custodyline/dialog/prompt"
	statex "github.com/voxline/custodyline/dialog/state"
)

type Config struct {
	// IdleTimeout is how long a silent session lives before the sweeper
	// treats the call as abandoned.
	IdleTimeout time.Duration `split_words:"true" default:"5m"`
	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration `split_words:"true" default:"1m"`
}

// Engine is the dialogue core's entry point for transport events.
type Engine struct {
	store     statex.Store
	machine   *machinex.Machine
	orch      *lookupx.Orchestrator
	formatter *promptx.Formatter

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	idleTimeout   time.Duration
	sweepInterval time.Duration

	now func() time.Time
}

func New(
	store statex.Store,
	m *machinex.Machine,
	orch *lookupx.Orchestrator,
	cfg Config,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if m == nil {
		return nil, errors.New("state machine is required")
	}
	if orch == nil {
		return nil, errors.New("lookup orchestrator is required")
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	e := &Engine{
		store:         store,
		machine:       m,
		orch:          orch,
		formatter:     promptx.NewFormatter(),
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}

	graphRunner, err := e.compileHandleEventGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// HandleEvent processes one transport event and returns the instruction to
// render. Dialogue-level trouble (bad input, declines, retry exhaustion,
// lookup failure) never surfaces as an error; only internal faults do, and
// those come paired with a spoken apology instruction and a purged session.
func (e *Engine) HandleEvent(ctx context.Context, ev contractx.Event) (contractx.PromptInstruction, error) {
	out, err := e.graphRunner.Invoke(ctx, nodex.GraphInput{Event: ev})
	if err != nil {
		if errors.Is(err, nodex.ErrInvalidCallID) {
			return contractx.PromptInstruction{}, err
		}
		log.Error().Err(err).Str("call_id", ev.CallID).Msg("event handling failed")
		if delErr := e.store.Delete(ctx, ev.CallID); delErr != nil {
			log.Error().Err(delErr).Str("call_id", ev.CallID).Msg("purge after fault failed")
		}
		return e.formatter.PromptFor(statex.StateEnded, faultSession(ev.CallID, e.now())), err
	}
	return out.Prompt, nil
}

// Snapshot exposes the observability projection for a live call.
func (e *Engine) Snapshot(ctx context.Context, callID string) (contractx.SessionSnapshot, error) {
	sess, err := e.store.Get(ctx, callID)
	if err != nil {
		return contractx.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

// RunSweeper purges abandoned sessions until ctx is cancelled. Intended to
// run in its own goroutine.
func (e *Engine) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepOnce(ctx)
		}
	}
}

func (e *Engine) sweepOnce(ctx context.Context) {
	purged, err := e.store.SweepExpired(ctx, e.now(), e.idleTimeout)
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
	}
	for _, sess := range purged {
		log.Info().
			Str("call_id", sess.CallID).
			Str("state", string(sess.State)).
			Msg("purged abandoned call session")
	}
}

func faultSession(callID string, now time.Time) *statex.CallSession {
	sess := statex.NewCallSession(callID, now)
	sess.End(statex.StateEnded, statex.EndFault)
	return sess
}
