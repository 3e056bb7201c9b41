// Package openai implements the backend adapter for the OpenAI Images API.
package openai

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
const DefaultBaseURL = "https://api.openai.com/v1"

const (
	defaultModel = "dall-e-3"
	defaultSize  = "1024x1024"
)

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

// OpenAI is the adapter. Safe for concurrent use.
type OpenAI struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *OpenAI {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OpenAI{config: cfg}
}

// ID returns the backend identifier.
func (o *OpenAI) ID() string { return "openai" }

// Needs declares the API key mandatory.
func (o *OpenAI) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []imageDatum `json:"data"`

	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type imageDatum struct {
	URL     string `json:"url"`
	B64JSON string `json:"b64_json"`
}

// Generate calls the images/generations endpoint. The pixel size is mapped
// onto the API's WxH size string; unset dimensions fall back to 1024x1024.
func (o *OpenAI) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: openai requires an API key", core.ErrMissingCredential)
	}

	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	payload := imageRequest{
		Model:  model,
		Prompt: req.Prompt,
		N:      req.EffectiveBatch(0),
		Size:   SizeString(req.Width, req.Height),
	}

	resp, err := httpx.PostJSON(ctx, o.config.HTTPClient, base+"/images/generations", payload, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: o.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}

	var body imageResponse
	decodeErr := resp.Decode(&body)

	if !resp.OK() {
		msg := "generation rejected"
		if decodeErr == nil && body.Error != nil {
			msg = body.Error.Message
		}
		return nil, &core.BackendError{
			Backend: o.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: msg,
			Err:     core.ErrProvider,
		}
	}
	if decodeErr != nil {
		return nil, &core.BackendError{Backend: o.ID(), Message: decodeErr.Error(), Err: core.ErrParse}
	}
	if len(body.Data) == 0 {
		return nil, &core.BackendError{Backend: o.ID(), Message: "response carried no images", Err: core.ErrParse}
	}

	images := make([]core.GeneratedImage, 0, len(body.Data))
	for _, d := range body.Data {
		switch {
		case d.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, &core.BackendError{Backend: o.ID(), Message: err.Error(), Err: core.ErrDecode}
			}
			images = append(images, core.InlineImage(data, "image/png"))
		case d.URL != "":
			images = append(images, core.URLImage(d.URL))
		}
	}
	if len(images) == 0 {
		return nil, &core.BackendError{Backend: o.ID(), Message: "image entries were all empty", Err: core.ErrParse}
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

// SizeString renders the requested dimensions as the API's size parameter.
func SizeString(width, height int) string {
	if width <= 0 || height <= 0 {
		return defaultSize
	}
	return fmt.Sprintf("%dx%d", width, height)
}
