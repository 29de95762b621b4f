package contract

import "context"

// LookupService is the external identity-lookup collaborator. Implementations
// wrap whatever the backend actually is (web automation, an API); the core
// only ever sees this contract.
type LookupService interface {
	Lookup(ctx context.Context, req LookupRequest) (LookupResult, error)
}
