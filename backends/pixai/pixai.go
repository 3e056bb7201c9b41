// Package pixai implements the backend adapter for the PixAI hosted task
// API: a submission returns a task id that is polled until the task reaches
// a terminal state.
package pixai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/backends/internal/poll"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is the hosted PixAI API endpoint.
const DefaultBaseURL = "https://api.pixai.art/v1"

// Provider defaults and caps.
const (
	defaultModelID = "1648918127446573124"
	defaultWidth   = 512
	defaultHeight  = 768
	maxBatch       = 4

	defaultLoRAWeight = 0.7
)

// Poll policy: tasks are checked every two seconds for up to two minutes.
const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 60
)

// Terminal task states.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Config holds configuration for the adapter.
type Config struct {
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollAttempts int
}

// Option configures the adapter.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithPollPolicy overrides the poll interval and attempt budget.
func WithPollPolicy(interval time.Duration, attempts int) Option {
	return func(c *Config) {
		c.PollInterval = interval
		c.PollAttempts = attempts
	}
}

// PixAI is the adapter. Safe for concurrent use.
type PixAI struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *PixAI {
	cfg := Config{
		HTTPClient:   http.DefaultClient,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PixAI{config: cfg}
}

// ID returns the backend identifier.
func (p *PixAI) ID() string { return "pixai" }

// Needs declares the API key mandatory.
func (p *PixAI) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type taskParameters struct {
	Prompts         string             `json:"prompts"`
	NegativePrompts string             `json:"negativePrompts,omitempty"`
	ModelID         string             `json:"modelId"`
	Width           int                `json:"width"`
	Height          int                `json:"height"`
	BatchSize       int                `json:"batchSize"`
	SamplingSteps   int                `json:"samplingSteps,omitempty"`
	CFGScale        float64            `json:"cfgScale,omitempty"`
	SamplingMethod  string             `json:"samplingMethod,omitempty"`
	Seed            *int64             `json:"seed,omitempty"`
	LoRA            map[string]float64 `json:"lora,omitempty"`
}

type createResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

type taskResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outputs struct {
		MediaURLs []string `json:"mediaUrls"`
	} `json:"outputs"`
	Message string `json:"message,omitempty"`
}

// Generate submits a generation task and polls it to a terminal state.
func (p *PixAI) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: pixai requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}
	key := route.APIKey.Expose()

	params := p.buildParameters(req)
	resp, err := httpx.PostJSON(ctx, p.config.HTTPClient, base+"/task", map[string]any{"parameters": params}, key)
	if err != nil {
		return nil, &core.BackendError{Backend: p.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: p.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "task submission rejected",
			Err:     core.ErrProvider,
		}
	}

	var created createResponse
	if err := resp.Decode(&created); err != nil {
		return nil, &core.BackendError{Backend: p.ID(), Message: err.Error(), Err: core.ErrDecode}
	}
	if created.ID == "" {
		msg := created.Message
		if msg == "" {
			msg = "task submission returned no id"
		}
		return nil, &core.BackendError{Backend: p.ID(), Body: string(resp.Body), Message: msg, Err: core.ErrProvider}
	}

	core.EmitLog(sink, core.LogInfo, "pixai: submitted task "+created.ID)

	var images []core.GeneratedImage
	err = poll.Run(ctx, p.config.PollInterval, p.config.PollAttempts, func(ctx context.Context, attempt int) (bool, error) {
		core.EmitProgress(sink, float64(attempt)/float64(p.config.PollAttempts), 0, nil)

		statusResp, err := httpx.Get(ctx, p.config.HTTPClient, base+"/task/"+url.PathEscape(created.ID), key)
		if err != nil {
			return false, &core.BackendError{Backend: p.ID(), Message: err.Error(), Err: core.ErrNetwork}
		}
		if !statusResp.OK() {
			return false, &core.BackendError{
				Backend: p.ID(),
				Status:  statusResp.Status,
				Body:    string(statusResp.Body),
				Message: "task status fetch failed",
				Err:     core.ErrProvider,
			}
		}

		var task taskResponse
		if err := statusResp.Decode(&task); err != nil {
			return false, &core.BackendError{Backend: p.ID(), Message: err.Error(), Err: core.ErrDecode}
		}

		switch task.Status {
		case statusCompleted:
			for _, u := range task.Outputs.MediaURLs {
				if u != "" {
					images = append(images, core.URLImage(u))
				}
			}
			if len(images) == 0 {
				return false, &core.BackendError{Backend: p.ID(), Message: "completed task has no media urls", Err: core.ErrParse}
			}
			return true, nil
		case statusFailed:
			msg := task.Message
			if msg == "" {
				msg = "generation failed"
			}
			return false, &core.BackendError{Backend: p.ID(), Body: string(statusResp.Body), Message: msg, Err: core.ErrProvider}
		default:
			// queued / running: stay in the poll loop
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrBudgetExceeded) {
			return nil, &core.BackendError{
				Backend: p.ID(),
				Message: fmt.Sprintf("task %s not terminal after %d polls", created.ID, p.config.PollAttempts),
				Err:     core.ErrTimeout,
			}
		}
		return nil, err
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{
		Images:           images,
		ProviderMetadata: map[string]any{"task_id": created.ID},
	}, nil
}

func (p *PixAI) buildParameters(req *core.GenerationRequest) taskParameters {
	model := req.Model
	if model == "" {
		model = defaultModelID
	}

	params := taskParameters{
		Prompts:         req.Prompt,
		NegativePrompts: req.NegativePrompt,
		ModelID:         model,
		Width:           valueOr(req.Width, defaultWidth),
		Height:          valueOr(req.Height, defaultHeight),
		BatchSize:       req.EffectiveBatch(maxBatch),
		SamplingSteps:   req.Steps,
		CFGScale:        req.CFGScale,
		SamplingMethod:  req.Sampler,
	}
	if req.HasSeed() {
		params.Seed = req.Seed
	}
	if len(req.LoRAs) > 0 {
		params.LoRA = make(map[string]float64, len(req.LoRAs))
		for _, l := range req.LoRAs {
			w := l.Weight
			if w == 0 {
				w = defaultLoRAWeight
			}
			params.LoRA[l.ID] = w
		}
	}
	return params
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
