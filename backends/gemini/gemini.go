// Package gemini implements the backend adapter for Google's Gemini image
// generation models via the official generative-ai-go SDK. Reference images
// supplied as data URIs are decoded and attached as inline blobs so the model
// can do image-conditioned generation.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/datauri"
	"github.com/prism-labs/prism/core"
)

const defaultModel = "gemini-2.0-flash-exp-image-generation"

// clientFactory lets tests swap out the SDK client constructor.
type clientFactory func(ctx context.Context, apiKey string) (*genai.Client, error)

// Config holds configuration for the adapter.
type Config struct {
	newClient clientFactory
}

// Option configures the adapter.
type Option func(*Config)

// withClientFactory overrides SDK client construction. Test hook.
func withClientFactory(f clientFactory) Option {
	return func(c *Config) { c.newClient = f }
}

// Gemini is the adapter. Safe for concurrent use.
type Gemini struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *Gemini {
	cfg := Config{
		newClient: func(ctx context.Context, apiKey string) (*genai.Client, error) {
			return genai.NewClient(ctx, option.WithAPIKey(apiKey))
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Gemini{config: cfg}
}

// ID returns the backend identifier.
func (g *Gemini) ID() string { return "gemini" }

// Needs declares the API key mandatory.
func (g *Gemini) Needs() backends.Requirements { return backends.Requirements{APIKey: true} }

// Generate sends the prompt plus any decoded reference images and collects
// every inline image blob from the reply.
func (g *Gemini) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasAPIKey() {
		return nil, fmt.Errorf("%w: gemini requires an API key", core.ErrMissingCredential)
	}

	parts, err := BuildParts(req)
	if err != nil {
		return nil, err
	}

	client, err := g.config.newClient(ctx, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: g.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	defer client.Close()

	modelName := req.Model
	if modelName == "" {
		modelName = defaultModel
	}
	model := client.GenerativeModel(modelName)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &core.BackendError{Backend: g.ID(), Message: err.Error(), Err: core.ErrProvider}
	}

	images, reply := ExtractImages(resp)
	if len(images) == 0 {
		msg := "no image in model reply"
		if reply != "" {
			msg = "no image in model reply: " + reply
		}
		return nil, &core.BackendError{Backend: g.ID(), Message: msg, Err: core.ErrParse}
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

// BuildParts assembles the content parts for a generation call: the prompt
// text followed by one blob per decoded reference image. A reference image
// that is not a data URI is an input error.
func BuildParts(req *core.GenerationRequest) ([]genai.Part, error) {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\nAvoid: " + req.NegativePrompt
	}
	parts := []genai.Part{genai.Text(prompt)}

	for i, ref := range req.ReferenceImages {
		img, err := datauri.Decode(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: reference image %d: %v", core.ErrInvalidRequest, i, err)
		}
		format := strings.TrimPrefix(img.MIMEType, "image/")
		parts = append(parts, genai.ImageData(format, img.Data))
	}
	return parts, nil
}

// ExtractImages pulls every inline image blob out of a reply, along with the
// concatenated text parts for diagnostics when no blob is present.
func ExtractImages(resp *genai.GenerateContentResponse) ([]core.GeneratedImage, string) {
	var images []core.GeneratedImage
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				images = append(images, core.InlineImage(p.Data, p.MIMEType))
			case genai.Text:
				text.WriteString(string(p))
			}
		}
	}
	return images, strings.TrimSpace(text.String())
}
