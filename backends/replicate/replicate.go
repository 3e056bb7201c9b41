// Package replicate implements the backend adapter for Replicate's
// predictions API. Predictions run asynchronously: the adapter submits one,
// then polls its status URL until it succeeds, fails, or the budget runs out.
package replicate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/backends/internal/poll"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.replicate.com"

// defaultVersion is the SDXL release used when the request names no model.
const defaultVersion = "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"

// Poll policy: predictions are checked every two seconds for up to five
// minutes. Cold model boots routinely take minutes.
const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 150
)

const randomSeedMax = 4294967295

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

// Replicate is the adapter. Safe for concurrent use.
type Replicate struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *Replicate {
	cfg := Config{
		HTTPClient:   http.DefaultClient,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Replicate{config: cfg}
}

// ID returns the backend identifier.
func (r *Replicate) ID() string { return "replicate" }

// Needs declares the API key mandatory.
func (r *Replicate) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type predictionInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	Seed              int64   `json:"seed"`
	NumOutputs        int     `json:"num_outputs"`
}

type createRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// Output is a URL string for single-output models and a list of URL
	// strings for multi-output ones.
	Output any    `json:"output"`
	Error  string `json:"error"`
}

// Generate submits a prediction and polls until it reaches a terminal state.
func (r *Replicate) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: replicate requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}
	version := req.Model
	if version == "" {
		version = defaultVersion
	}

	payload := createRequest{
		Version: version,
		Input: predictionInput{
			Prompt:            req.Prompt,
			NegativePrompt:    req.NegativePrompt,
			Width:             req.Width,
			Height:            req.Height,
			NumInferenceSteps: req.Steps,
			GuidanceScale:     req.CFGScale,
			Seed:              req.SeedOrRandom(randomSeedMax),
			NumOutputs:        req.EffectiveBatch(0),
		},
	}

	resp, err := httpx.PostJSON(ctx, r.config.HTTPClient, base+"/v1/predictions", payload, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: r.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: r.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "prediction rejected",
			Err:     core.ErrProvider,
		}
	}

	var created prediction
	if err := resp.Decode(&created); err != nil {
		return nil, &core.BackendError{Backend: r.ID(), Message: err.Error(), Err: core.ErrParse}
	}
	if created.ID == "" {
		return nil, &core.BackendError{Backend: r.ID(), Message: "submission returned no prediction id", Err: core.ErrParse}
	}

	core.EmitLog(sink, core.LogInfo, "replicate: prediction "+created.ID+" queued")

	statusURL := base + "/v1/predictions/" + created.ID
	var final prediction
	pollErr := poll.Run(ctx, r.config.PollInterval, r.config.PollAttempts, func(ctx context.Context, attempt int) (bool, error) {
		resp, err := httpx.Get(ctx, r.config.HTTPClient, statusURL, route.APIKey.Expose())
		if err != nil || !resp.OK() {
			// Transient status hiccups do not kill the job.
			return false, nil
		}
		var p prediction
		if err := resp.Decode(&p); err != nil {
			return false, nil
		}
		switch p.Status {
		case "succeeded":
			final = p
			return true, nil
		case "failed", "canceled":
			msg := p.Error
			if msg == "" {
				msg = "prediction " + p.Status
			}
			return false, &core.BackendError{Backend: r.ID(), Message: msg, Err: core.ErrProvider}
		default:
			core.EmitProgress(sink, float64(attempt)/float64(r.config.PollAttempts), 0, nil)
			return false, nil
		}
	})
	if pollErr != nil {
		if errors.Is(pollErr, poll.ErrBudgetExceeded) {
			return nil, &core.BackendError{
				Backend: r.ID(),
				Message: "prediction " + created.ID + " did not finish in time",
				Err:     core.ErrTimeout,
			}
		}
		return nil, pollErr
	}

	urls := OutputURLs(final.Output)
	if len(urls) == 0 {
		return nil, &core.BackendError{Backend: r.ID(), Message: "prediction succeeded without output", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(urls))
	for _, u := range urls {
		images = append(images, core.URLImage(u))
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{
		Images:           images,
		ProviderMetadata: map[string]any{"prediction_id": created.ID},
	}, nil
}

// OutputURLs normalizes a prediction output into a list of URL strings.
// Models disagree on the shape: some return one string, most a list.
func OutputURLs(output any) []string {
	switch v := output.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}
