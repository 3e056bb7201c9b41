// Package chat implements the fallback adapter for OpenAI-compatible chat
// completion endpoints that return images instead of running a dedicated
// image API. The reply is mined for images: a structured images array when
// the server provides one, otherwise image URLs scraped out of the message
// text.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/backends/internal/datauri"
	"github.com/prism-labs/prism/backends/internal/httpx"
	"github.com/prism-labs/prism/core"
)

const defaultModel = "gpt-4o"

// imageURLPattern matches bare image links inside markdown or prose.
var imageURLPattern = regexp.MustCompile(`https?://[^\s)"'\]]+\.(?:png|jpe?g|webp|gif)[^\s)"'\]]*`)

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

// Chat is the adapter. Safe for concurrent use.
type Chat struct {
	config Config
}

// New creates the adapter.
func New(opts ...Option) *Chat {
	cfg := Config{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Chat{config: cfg}
}

// ID returns the backend identifier.
func (c *Chat) ID() string { return "chat" }

// Needs declares the base URL mandatory: there is no sensible default host
// for an arbitrary OpenAI-compatible endpoint. The key stays optional, since
// many self-hosted servers run open.
func (c *Chat) Needs() backends.Requirements { return backends.Requirements{BaseURL: true} }

type chatMessage struct {
	Role string `json:"role"`
	// Content is a plain string for text-only prompts, or a part list when
	// reference images ride along.
	Content any `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *partImageURL `json:"image_url,omitempty"`
}

type partImageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// userMessage builds the single user turn. Reference images are forwarded as
// image_url parts the way multimodal chat endpoints expect them.
func userMessage(prompt string, refs []string) chatMessage {
	if len(refs) == 0 {
		return chatMessage{Role: "user", Content: prompt}
	}
	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &partImageURL{URL: ref}})
	}
	return chatMessage{Role: "user", Content: parts}
}

// imageRef is one entry of a reply's images array. Servers disagree on the
// shape: a bare string (URL or data URI), an object with a url field, or the
// Gemini chat form {image_url: {url}}.
type imageRef struct {
	value string
}

func (r *imageRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.value = s
		return nil
	}
	var obj struct {
		URL      string `json:"url"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.URL != "" {
		r.value = obj.URL
	} else {
		r.value = obj.ImageURL.URL
	}
	return nil
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string     `json:"content"`
			Images  []imageRef `json:"images,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate posts the prompt as a single user message and extracts whatever
// images the reply carries.
func (c *Chat) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	if !route.HasBaseURL() {
		return nil, fmt.Errorf("%w: chat requires a base URL", core.ErrMissingCredential)
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\nAvoid: " + req.NegativePrompt
	}
	payload := completionRequest{
		Model:    model,
		Messages: []chatMessage{userMessage("Generate an image: "+prompt, req.ReferenceImages)},
	}

	resp, err := httpx.PostJSON(ctx, c.config.HTTPClient, CompletionsURL(route.BaseURL), payload, route.APIKey.Expose())
	if err != nil {
		return nil, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrNetwork}
	}
	if !resp.OK() {
		return nil, &core.BackendError{
			Backend: c.ID(),
			Status:  resp.Status,
			Body:    string(resp.Body),
			Message: "completion rejected",
			Err:     core.ErrProvider,
		}
	}

	var body completionResponse
	if err := resp.Decode(&body); err != nil {
		return nil, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrParse}
	}
	if len(body.Choices) == 0 {
		return nil, &core.BackendError{Backend: c.ID(), Message: "completion carried no choices", Err: core.ErrParse}
	}

	msg := body.Choices[0].Message
	structured := make([]string, 0, len(msg.Images))
	for _, ref := range msg.Images {
		structured = append(structured, ref.value)
	}
	images, err := ExtractImages(structured, msg.Content)
	if err != nil {
		return nil, &core.BackendError{Backend: c.ID(), Message: err.Error(), Err: core.ErrParse}
	}

	core.EmitProgress(sink, 1, 0, nil)
	return &core.GenerationResponse{Images: images}, nil
}

// CompletionsURL normalizes a caller-supplied base URL into the completions
// endpoint. Callers pass anything from a bare host to the full path; the
// endpoint suffix is appended only when no chat or images path is already
// present.
func CompletionsURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") || strings.HasSuffix(base, "/images/generations") {
		return base
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// ExtractImages pulls images out of a reply, preferring the structured
// images array. Entries may be data URIs, bare base64, or URLs. With no
// structured images, image links are scraped from the message text; a reply
// with none at all is an error carrying the text for diagnostics.
func ExtractImages(structured []string, content string) ([]core.GeneratedImage, error) {
	var images []core.GeneratedImage
	for _, entry := range structured {
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://") {
			images = append(images, core.URLImage(entry))
			continue
		}
		img, err := datauri.DecodeLoose(entry)
		if err != nil {
			continue
		}
		images = append(images, core.InlineImage(img.Data, img.MIMEType))
	}
	if len(images) > 0 {
		return images, nil
	}

	for _, match := range imageURLPattern.FindAllString(content, -1) {
		images = append(images, core.URLImage(match))
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("reply contained no image: %s", strings.TrimSpace(content))
	}
	return images, nil
}
