// Package comfyui implements the backend adapter for a self-hosted ComfyUI
// server. ComfyUI executes caller-supplied workflow graphs: the adapter
// substitutes canonical request values into the graph's placeholder markers,
// queues it, and polls the history endpoint until outputs appear.
package comfyui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/backends/internal/poll"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is where a stock ComfyUI server listens.
const DefaultBaseURL = "http://127.0.0.1:8188"

// Provider defaults for the built-in workflow.
const (
	defaultWidth      = 512
	defaultHeight     = 768
	defaultSteps      = 25
	defaultCFGScale   = 7.0
	defaultSampler    = "dpmpp_2m"
	defaultScheduler  = "karras"
	defaultCheckpoint = "v1-5-pruned-emaonly.safetensors"
)

// Poll policy: jobs are checked once a second for up to two minutes.
const (
	defaultPollInterval = time.Second
	defaultPollAttempts = 120
)

// randomSeedMax bounds provider-chosen seeds, matching the UI's range.
const randomSeedMax = 999999999

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

// ComfyUI is the workflow-graph adapter. Safe for concurrent use.
type ComfyUI struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *ComfyUI {
	cfg := Config{
		HTTPClient:   http.DefaultClient,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ComfyUI{config: cfg}
}

// ID returns the backend identifier.
func (c *ComfyUI) ID() string { return "comfyui" }

// Needs reports no mandatory credentials; a local default base URL applies.
func (c *ComfyUI) Needs() backends.Requirements { return backends.Requirements{} }

type queueResponse struct {
	PromptID string `json:"prompt_id"`
	Error    any    `json:"error,omitempty"`
}

type historyImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type historyOutput struct {
	Images []historyImage `json:"images"`
}

type historyEntry struct {
	Outputs map[string]historyOutput `json:"outputs"`
}

// Generate resolves the workflow graph, queues it, and polls /history until
// the job produces output images, which are returned as /view URLs.
func (c *ComfyUI) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	base := baseURL(route)
	seed := req.SeedOrRandom(randomSeedMax)

	graph, err := c.resolveWorkflow(req, seed)
	if err != nil {
		return nil, err
	}

	resp, err := httpx.PostJSON(ctx, c.config.HTTPClient, base+"/prompt", map[string]any{"prompt": graph}, "")
	if err != nil {
		return nil, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: c.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "workflow rejected",
			Err:     core.ErrProvider,
		}
	}

	var queued queueResponse
	if err := resp.Decode(&queued); err != nil {
		return nil, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrDecode}
	}
	if queued.PromptID == "" {
		return nil, &core.BackendError{
			Backend: c.ID(),
			Body:    string(resp.Body),
			Message: "queue response has no prompt_id",
			Err:     core.ErrParse,
		}
	}

	core.EmitLog(sink, core.LogInfo, "comfyui: queued prompt "+queued.PromptID)

	var images []core.GeneratedImage
	err = poll.Run(ctx, c.config.PollInterval, c.config.PollAttempts, func(ctx context.Context, attempt int) (bool, error) {
		core.EmitProgress(sink, float64(attempt)/float64(c.config.PollAttempts), 0, nil)

		histResp, err := httpx.Get(ctx, c.config.HTTPClient, base+"/history/"+url.PathEscape(queued.PromptID), "")
		if err != nil {
			return false, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrNetwork}
		}
		if !histResp.OK() {
			// history endpoint hiccups are transient; keep polling
			return false, nil
		}

		var hist map[string]historyEntry
		if err := histResp.Decode(&hist); err != nil {
			return false, nil
		}

		entry, ok := hist[queued.PromptID]
		if !ok {
			return false, nil
		}
		images = viewURLs(base, entry)
		return len(images) > 0, nil
	})
	if err != nil {
		if errors.Is(err, poll.ErrBudgetExceeded) {
			return nil, &core.BackendError{
				Backend: c.ID(),
				Message: fmt.Sprintf("no output after %d polls", c.config.PollAttempts),
				Err:     core.ErrTimeout,
			}
		}
		return nil, err
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{
		Images:           images,
		ProviderMetadata: map[string]any{"prompt_id": queued.PromptID},
	}, nil
}

// resolveWorkflow picks the caller's graph from ProviderOptions["workflow"]
// or falls back to the built-in one, then substitutes placeholders.
func (c *ComfyUI) resolveWorkflow(req *core.GenerationRequest, seed int64) (map[string]any, error) {
	graph := defaultWorkflow()
	if raw, ok := req.ProviderOptions["workflow"]; ok {
		custom, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: provider option %q must be a workflow object", core.ErrInvalidRequest, "workflow")
		}
		graph = custom
	}

	substituted := Substitute(graph, placeholderValues(req, seed)).(map[string]any)
	return substituted, nil
}

// viewURLs flattens every output node's images into /view URLs, in node
// order.
func viewURLs(base string, entry historyEntry) []core.GeneratedImage {
	nodes := make([]string, 0, len(entry.Outputs))
	for node := range entry.Outputs {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var images []core.GeneratedImage
	for _, node := range nodes {
		for _, img := range entry.Outputs[node].Images {
			q := url.Values{}
			q.Set("filename", img.Filename)
			q.Set("subfolder", img.Subfolder)
			kind := img.Type
			if kind == "" {
				kind = "output"
			}
			q.Set("type", kind)
			images = append(images, core.URLImage(base+"/view?"+q.Encode()))
		}
	}
	return images
}

func baseURL(route *core.RoutingContext) string {
	if route.HasBaseURL() {
		return strings.TrimRight(route.BaseURL, "/")
	}
	return DefaultBaseURL
}
