// Package server exposes the dispatcher over an OpenAI-compatible HTTP
// surface, so existing OpenAI image clients can point at prism and fan out
// to any registered backend.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/core"
)

// Dispatcher routes one canonical request to a backend. The default is the
// package-level registry dispatcher; tests substitute their own.
type Dispatcher func(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error)

// Handler carries the server's dependencies.
type Handler struct {
	dispatch Dispatcher
	client   *http.Client
	sink     core.ProgressSink
}

// Option configures the handler.
type Option func(*Handler)

// WithDispatcher replaces the registry dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(h *Handler) { h.dispatch = d }
}

// WithHTTPClient sets the client used by the model-list relay.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) { h.client = client }
}

// WithSink routes per-request progress and log lines to sink.
func WithSink(sink core.ProgressSink) Option {
	return func(h *Handler) { h.sink = sink }
}

// New creates a handler over the registered backends.
func New(opts ...Option) *Handler {
	h := &Handler{
		dispatch: backends.Generate,
		client:   http.DefaultClient,
		sink:     core.NopSink{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine with every route attached.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/v1/images/generations", h.GenerateImages)
	router.POST("/v1/chat/completions", h.ChatCompletions)
	router.GET("/v1/models", h.ListModels)
	router.GET("/proxy/models", h.RelayModels)
	return router
}

// Serve runs the HTTP server on addr until the listener fails.
func (h *Handler) Serve(addr string) error {
	return h.Router().Run(addr)
}

// errorBody is the OpenAI-style error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// writeError maps dispatch failures onto HTTP statuses: caller mistakes are
// 400, missing credentials 401, provider timeouts 504, and every other
// backend failure 502.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	kind := "backend_error"
	switch {
	case errors.Is(err, core.ErrInvalidRequest), errors.Is(err, core.ErrUnknownBackend):
		status = http.StatusBadRequest
		kind = "invalid_request_error"
	case errors.Is(err, core.ErrMissingCredential):
		status = http.StatusUnauthorized
		kind = "authentication_error"
	case errors.Is(err, core.ErrTimeout):
		status = http.StatusGatewayTimeout
		kind = "timeout_error"
	case errors.Is(err, context.Canceled):
		// Client went away; the status is moot but 499-style close fits.
		status = 499
		kind = "client_closed_request"
	}
	c.JSON(status, errorBody{Error: errorDetail{Message: err.Error(), Type: kind}})
}
