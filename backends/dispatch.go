package backends

import (
	"context"
	"fmt"

	"github.com/prism-labs/prism/core"
)

// Generate validates req, selects the adapter named by route.BackendID and
// invokes it. It is stateless and safe to call concurrently for distinct
// requests.
//
// No outbound call is issued for a request that fails validation or is
// missing a mandatory credential. The dispatcher never retries and never
// falls back to another backend; adapter errors surface unchanged.
func Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if route == nil || route.BackendID == "" {
		return nil, fmt.Errorf("%w: no backend id supplied", core.ErrUnknownBackend)
	}

	backend := Get(route.BackendID)
	if backend == nil {
		return nil, fmt.Errorf("%w: %s (available: %v)", core.ErrUnknownBackend, route.BackendID, List())
	}

	needs := backend.Needs()
	if needs.APIKey && !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: backend %s requires an API key", core.ErrMissingCredential, route.BackendID)
	}
	if needs.BaseURL && !route.HasBaseURL() {
		return nil, fmt.Errorf("%w: backend %s requires a base URL", core.ErrMissingCredential, route.BackendID)
	}

	return backend.Generate(ctx, req, route, sink)
}
