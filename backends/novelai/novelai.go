// Package novelai implements the backend adapter for the NovelAI image
// service. The provider answers a successful generation with a flat binary
// bundle containing one or more PNG streams back-to-back, so the response is
// carved byte-wise rather than decoded as JSON.
package novelai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/backends/internal/pngsplit"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is the hosted NovelAI image endpoint.
const DefaultBaseURL = "https://image.novelai.net"

// Provider defaults.
const (
	defaultModel    = "nai-diffusion-3"
	defaultWidth    = 832
	defaultHeight   = 1216
	defaultSteps    = 28
	defaultCFGScale = 5.0
	defaultSampler  = "k_euler_ancestral"
	maxBatch        = 4
)

// randomSeedMax matches the service's accepted seed range.
const randomSeedMax = 4294967295

// samplerNames maps canonical sampler tokens to NovelAI identifiers.
// Unrecognized tokens pass through verbatim.
var samplerNames = map[string]string{
	"euler":           "k_euler",
	"euler_ancestral": "k_euler_ancestral",
	"dpmpp_2m":        "k_dpmpp_2m",
	"dpmpp_sde":       "k_dpmpp_sde",
	"ddim":            "ddim_v3",
}

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

// NovelAI is the adapter. Safe for concurrent use.
type NovelAI struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *NovelAI {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &NovelAI{config: cfg}
}

// ID returns the backend identifier.
func (n *NovelAI) ID() string { return "novelai" }

// Needs declares the API key mandatory.
func (n *NovelAI) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type generateRequest struct {
	Input      string         `json:"input"`
	Model      string         `json:"model"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// Generate submits one synchronous generation call and carves the PNG bundle
// from the binary response body.
func (n *NovelAI) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: novelai requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	sampler := req.Sampler
	if mapped, ok := samplerNames[sampler]; ok {
		sampler = mapped
	} else if sampler == "" {
		sampler = defaultSampler
	}
	cfg := req.CFGScale
	if cfg == 0 {
		cfg = defaultCFGScale
	}

	payload := generateRequest{
		Input:  req.Prompt,
		Model:  model,
		Action: "generate",
		Parameters: map[string]any{
			"width":           valueOr(req.Width, defaultWidth),
			"height":          valueOr(req.Height, defaultHeight),
			"steps":           valueOr(req.Steps, defaultSteps),
			"scale":           cfg,
			"sampler":         sampler,
			"seed":            req.SeedOrRandom(randomSeedMax),
			"n_samples":       req.EffectiveBatch(maxBatch),
			"negative_prompt": req.NegativePrompt,
			"ucPreset":        0,
			"qualityToggle":   true,
		},
	}

	core.EmitLog(sink, core.LogInfo, "novelai: submitting generation")

	resp, err := httpx.PostJSON(ctx, n.config.HTTPClient, base+"/ai/generate-image", payload, route.APIKey.Expose())
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

	carved := pngsplit.Split(resp.Body)
	if len(carved) == 0 {
		return nil, &core.BackendError{Backend: n.ID(), Message: "no PNG images in response bundle", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(carved))
	for _, raw := range carved {
		// copy out of the response buffer so the images own their bytes
		data := make([]byte, len(raw))
		copy(data, raw)
		images = append(images, core.InlineImage(data, "image/png"))
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
