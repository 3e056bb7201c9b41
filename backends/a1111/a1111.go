// Package a1111 implements the backend adapter for a self-hosted
// Automatic1111 Stable Diffusion WebUI.
package a1111

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

// DefaultBaseURL is where a stock WebUI listens.
const DefaultBaseURL = "http://127.0.0.1:7860"

// Provider defaults applied when the canonical request leaves a field unset.
const (
	defaultWidth    = 512
	defaultHeight   = 768
	defaultSteps    = 25
	defaultCFGScale = 7.0
)

// Config holds configuration for the adapter.
type Config struct {
	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Option configures the adapter.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// A1111 is the Automatic1111 WebUI adapter. Safe for concurrent use.
type A1111 struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *A1111 {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &A1111{config: cfg}
}

// ID returns the backend identifier.
func (a *A1111) ID() string { return "a1111" }

// Needs reports no mandatory credentials: the WebUI is unauthenticated and a
// local default base URL applies.
func (a *A1111) Needs() backends.Requirements { return backends.Requirements{} }

type txt2imgRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Steps             int      `json:"steps"`
	CFGScale          float64  `json:"cfg_scale"`
	SamplerName       string   `json:"sampler_name"`
	Seed              int64    `json:"seed"`
	BatchSize         int      `json:"batch_size"`
	InitImages        []string `json:"init_images,omitempty"`
	Mask              string   `json:"mask,omitempty"`
	DenoisingStrength float64  `json:"denoising_strength,omitempty"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info,omitempty"`
}

// Generate maps the canonical request onto /sdapi/v1/txt2img, or
// /sdapi/v1/img2img when an init image is supplied, and decodes the inline
// base64 images from the reply.
func (a *A1111) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	base := baseURL(route)

	payload := txt2imgRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          valueOr(req.Width, defaultWidth),
		Height:         valueOr(req.Height, defaultHeight),
		Steps:          valueOr(req.Steps, defaultSteps),
		CFGScale:       req.CFGScale,
		SamplerName:    NativeSampler(req.Sampler, req.Scheduler),
		Seed:           -1,
		BatchSize:      req.EffectiveBatch(0),
	}
	if payload.CFGScale == 0 {
		payload.CFGScale = defaultCFGScale
	}
	if req.HasSeed() {
		payload.Seed = *req.Seed
	}

	path := "/sdapi/v1/txt2img"
	if req.InitImage != "" {
		path = "/sdapi/v1/img2img"
		payload.InitImages = []string{req.InitImage}
		payload.Mask = req.Mask
		payload.DenoisingStrength = req.Strength
		if payload.DenoisingStrength == 0 {
			payload.DenoisingStrength = 0.75
		}
	}

	core.EmitLog(sink, core.LogInfo, "a1111: submitting to "+base+path)

	resp, err := httpx.PostJSON(ctx, a.config.HTTPClient, base+path, payload, "")
	if err != nil {
		return nil, &core.BackendError{Backend: a.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: a.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "txt2img rejected",
			Err:     core.ErrProvider,
		}
	}

	var out txt2imgResponse
	if err := resp.Decode(&out); err != nil {
		return nil, &core.BackendError{Backend: a.ID(), Message: err.Error(), Err: core.ErrDecode}
	}
	if len(out.Images) == 0 {
		return nil, &core.BackendError{Backend: a.ID(), Message: "no images in response", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(out.Images))
	for i, b64 := range out.Images {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, &core.BackendError{
				Backend: a.ID(),
				Message: fmt.Sprintf("image %d is not valid base64: %v", i, err),
				Err:     core.ErrDecode,
			}
		}
		images = append(images, core.InlineImage(data, "image/png"))
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

// Model describes one checkpoint the WebUI has loaded.
type Model struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
}

// ListModels fetches the checkpoints known to the WebUI. This is optional
// enrichment: failures degrade to an empty list after a sink log line, they
// never fail a caller.
func (a *A1111) ListModels(ctx context.Context, route *core.RoutingContext, sink core.ProgressSink) []Model {
	resp, err := httpx.Get(ctx, a.config.HTTPClient, baseURL(route)+"/sdapi/v1/sd-models", "")
	if err != nil || !resp.OK() {
		core.EmitLog(sink, core.LogWarn, "a1111: model list unavailable")
		return nil
	}
	var models []Model
	if err := resp.Decode(&models); err != nil {
		core.EmitLog(sink, core.LogWarn, "a1111: model list unreadable")
		return nil
	}
	return models
}

func baseURL(route *core.RoutingContext) string {
	if route.HasBaseURL() {
		return strings.TrimRight(route.BaseURL, "/")
	}
	return DefaultBaseURL
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
