// Package backends contains the backend adapter contract, the registry of
// provider adapters, and the dispatcher that routes a canonical generation
// request to one of them.
//
// Each provider is implemented in its own subpackage (e.g. backends/a1111,
// backends/pixai) and registers itself from an init() function:
//
//	func init() {
//	    backends.Register("pixai", func() backends.Backend { return New() })
//	}
//
// Adapters own all provider-specific schema mapping, defaults, poll loops and
// error translation. They MUST be safe for concurrent calls: the dispatcher
// shares one instance across requests.
package backends

import (
	"context"

	"github.com/prism-labs/prism/core"
)

// Backend is the capability every provider adapter implements.
type Backend interface {
	// ID returns the backend identifier (e.g. "a1111", "pollinations").
	ID() string

	// Needs declares which routing credentials are mandatory. The
	// dispatcher enforces them before invoking Generate, so adapters can
	// assume they are present.
	Needs() Requirements

	// Generate translates the canonical request into the provider's native
	// schema, performs the outbound call(s), and normalizes the result.
	// sink may be nil. Generate must honor ctx cancellation on every
	// outbound call and poll wait.
	Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error)
}

// Requirements declares which out-of-band credentials a backend cannot work
// without.
type Requirements struct {
	APIKey  bool
	BaseURL bool
}

// Re-export core types for convenience, so adapter packages can lean on a
// single import for the shared shapes.
type (
	GenerationRequest  = core.GenerationRequest
	GenerationResponse = core.GenerationResponse
	GeneratedImage     = core.GeneratedImage
	RoutingContext     = core.RoutingContext
	ProgressSink       = core.ProgressSink
	BackendError       = core.BackendError
)
