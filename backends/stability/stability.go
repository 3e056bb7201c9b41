// Package stability implements the backend adapter for the Stability AI
// REST API. Positive and negative prompts travel as one weighted prompt
// list, and generated images come back base64-encoded inside artifacts.
package stability

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

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.stability.ai"

// Provider defaults.
const (
	defaultEngine = "stable-diffusion-xl-1024-v1-0"
	defaultWidth  = 1024
	defaultHeight = 1024
	defaultSteps  = 30
	defaultCFG    = 7.0
)

const randomSeedMax = 4294967295

// samplerNames maps canonical sampler identifiers onto the API's K_* tokens.
var samplerNames = map[string]string{
	"euler":           "K_EULER",
	"euler_ancestral": "K_EULER_ANCESTRAL",
	"heun":            "K_HEUN",
	"dpm_2":           "K_DPM_2",
	"dpm_2_ancestral": "K_DPM_2_ANCESTRAL",
	"dpmpp_2m":        "K_DPMPP_2M",
	"dpmpp_2s_a":      "K_DPMPP_2S_ANCESTRAL",
	"dpmpp_sde":       "K_DPMPP_SDE",
	"lms":             "K_LMS",
	"ddim":            "DDIM",
	"ddpm":            "DDPM",
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

// Stability is the adapter. Safe for concurrent use.
type Stability struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *Stability {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Stability{config: cfg}
}

// ID returns the backend identifier.
func (s *Stability) ID() string { return "stability" }

// Needs declares the API key mandatory.
func (s *Stability) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type generationRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CFGScale    float64      `json:"cfg_scale"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
	Seed        int64        `json:"seed"`
	Sampler     string       `json:"sampler,omitempty"`
}

type generationResponse struct {
	Artifacts []artifact `json:"artifacts"`
	Message   string     `json:"message"`
}

type artifact struct {
	Base64       string `json:"base64"`
	FinishReason string `json:"finishReason"`
	Seed         int64  `json:"seed"`
}

// Generate calls the text-to-image endpoint for the selected engine.
func (s *Stability) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: stability requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}
	engine := req.Model
	if engine == "" {
		engine = defaultEngine
	}

	payload := generationRequest{
		TextPrompts: WeightedPrompts(req.Prompt, req.NegativePrompt),
		CFGScale:    defaultCFG,
		Width:       defaultWidth,
		Height:      defaultHeight,
		Steps:       defaultSteps,
		Samples:     req.EffectiveBatch(0),
		Seed:        req.SeedOrRandom(randomSeedMax),
		Sampler:     NativeSampler(req.Sampler),
	}
	if req.Width > 0 {
		payload.Width = req.Width
	}
	if req.Height > 0 {
		payload.Height = req.Height
	}
	if req.Steps > 0 {
		payload.Steps = req.Steps
	}
	if req.CFGScale > 0 {
		payload.CFGScale = req.CFGScale
	}

	url := base + "/v1/generation/" + engine + "/text-to-image"
	resp, err := httpx.PostJSON(ctx, s.config.HTTPClient, url, payload, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: s.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}

	var body generationResponse
	decodeErr := resp.Decode(&body)

	if !resp.OK() {
		msg := "generation rejected"
		if decodeErr == nil && body.Message != "" {
			msg = body.Message
		}
		return nil, &core.BackendError{
			Backend: s.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: msg,
			Err:     core.ErrProvider,
		}
	}
	if decodeErr != nil {
		return nil, &core.BackendError{Backend: s.ID(), Message: decodeErr.Error(), Err: core.ErrParse}
	}
	if len(body.Artifacts) == 0 {
		return nil, &core.BackendError{Backend: s.ID(), Message: "response carried no artifacts", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(body.Artifacts))
	for i, a := range body.Artifacts {
		if a.Base64 == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(a.Base64)
		if err != nil {
			return nil, &core.BackendError{
				Backend: s.ID(),
				Message: fmt.Sprintf("artifact %d is not valid base64: %v", i, err),
				Err:     core.ErrDecode,
			}
		}
		images = append(images, core.InlineImage(data, "image/png"))
	}
	if len(images) == 0 {
		return nil, &core.BackendError{Backend: s.ID(), Message: "artifacts carried no image data", Err: core.ErrParse}
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

// WeightedPrompts folds the positive and negative prompts into the API's
// single weighted list. The negative prompt rides along with weight -1.
func WeightedPrompts(prompt, negative string) []textPrompt {
	prompts := []textPrompt{{Text: prompt, Weight: 1}}
	if negative != "" {
		prompts = append(prompts, textPrompt{Text: negative, Weight: -1})
	}
	return prompts
}

// NativeSampler translates a canonical sampler identifier into the API's
// token, or returns empty to let the service pick.
func NativeSampler(sampler string) string {
	return samplerNames[strings.ToLower(sampler)]
}
