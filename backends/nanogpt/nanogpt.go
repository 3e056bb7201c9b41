// Package nanogpt implements the backend adapter for the NanoGPT hosted
// image API, an OpenAI-compatible images endpoint.
package nanogpt

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is the hosted NanoGPT endpoint.
const DefaultBaseURL = "https://nano-gpt.com"

// defaultModel is used when the canonical request names none.
const defaultModel = "flux-schnell"

// Config holds configuration for the adapter.
type Config struct {
	HTTPClient *http.Client
}

// Option configures the adapter.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// NanoGPT is the adapter. Safe for concurrent use.
type NanoGPT struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *NanoGPT {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &NanoGPT{config: cfg}
}

// ID returns the backend identifier.
func (n *NanoGPT) ID() string { return "nanogpt" }

// Needs declares the API key mandatory.
func (n *NanoGPT) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type imageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	N      int    `json:"n"`
}

type imageDatum struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

type imageResponse struct {
	Data  []imageDatum `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate issues a single synchronous images/generations call.
func (n *NanoGPT) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: nanogpt requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	resp, err := httpx.PostJSON(ctx, n.config.HTTPClient, base+"/api/v1/images/generations", imageRequest{
		Prompt: req.Prompt,
		Model:  model,
		N:      req.EffectiveBatch(0),
	}, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: n.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: n.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "generation rejected",
			Err:     core.ErrProvider,
		}
	}

	var out imageResponse
	if err := resp.Decode(&out); err != nil {
		return nil, &core.BackendError{Backend: n.ID(), Message: err.Error(), Err: core.ErrDecode}
	}
	if out.Error != nil {
		return nil, &core.BackendError{
			Backend: n.ID(),
			Status:  resp.Status,
			Message: out.Error.Message,
			Err:     core.ErrProvider,
		}
	}
	if len(out.Data) == 0 {
		return nil, &core.BackendError{Backend: n.ID(), Message: "empty data list", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(out.Data))
	for i, d := range out.Data {
		switch {
		case d.URL != "":
			images = append(images, core.URLImage(d.URL))
		case d.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, &core.BackendError{
					Backend: n.ID(),
					Message: fmt.Sprintf("image %d is not valid base64: %v", i, err),
					Err:     core.ErrDecode,
				}
			}
			images = append(images, core.InlineImage(data, "image/png"))
		default:
			return nil, &core.BackendError{Backend: n.ID(), Message: "image entry has neither url nor b64_json", Err: core.ErrParse}
		}
	}

	return &core.GenerationResponse{Images: images}, nil
}
