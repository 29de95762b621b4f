// Package lookup sequences the handoff to the external identity-lookup
// collaborator.
package lookup

import (
	"context"
	"errors"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

const defaultTimeout = 45 * time.Second

type Config struct {
	// Timeout bounds one lookup attempt; on expiry the caller gets the
	// "lookup unavailable" outcome.
	Timeout time.Duration `split_words:"true" default:"45s"`
}

// Orchestrator runs exactly one lookup attempt per session. It never retries
// and never caches: identity data must not outlive the call that supplied it.
type Orchestrator struct {
	svc     contractx.LookupService
	timeout time.Duration
}

func NewOrchestrator(svc contractx.LookupService, cfg Config) (*Orchestrator, error) {
	if svc == nil {
		return nil, errors.New("lookup service is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Orchestrator{svc: svc, timeout: timeout}, nil
}

// Perform runs the single attempt. All failures fold into
// LookupFailed(reason); the dialogue never sees a raw error from here.
func (o *Orchestrator) Perform(ctx context.Context, req contractx.LookupRequest) contractx.LookupResult {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.svc.Lookup(ctx, req)
	if err != nil {
		reason := "unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		return contractx.LookupResult{Status: contractx.LookupFailed, FailReason: reason}
	}

	switch res.Status {
	case contractx.LookupSuccess, contractx.LookupNotFound:
		return res
	case contractx.LookupFailed:
		if res.FailReason == "" {
			res.FailReason = "unspecified"
		}
		return res
	default:
		return contractx.LookupResult{Status: contractx.LookupFailed, FailReason: "malformed response"}
	}
}
