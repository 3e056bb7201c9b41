package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/prism-labs/prism/core"
)

func TestGenerateRequiresAPIKey(t *testing.T) {
	factoryCalled := false
	g := New(withClientFactory(func(ctx context.Context, apiKey string) (*genai.Client, error) {
		factoryCalled = true
		return nil, errors.New("should not be reached")
	}))

	req := &core.GenerationRequest{Prompt: "a cat"}
	route := &core.RoutingContext{BackendID: "gemini"}

	_, err := g.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if factoryCalled {
		t.Fatal("client constructed before credential check")
	}
}

func TestGenerateClientFactoryFailure(t *testing.T) {
	g := New(withClientFactory(func(ctx context.Context, apiKey string) (*genai.Client, error) {
		if apiKey != "gm_key" {
			t.Errorf("apiKey = %q", apiKey)
		}
		return nil, errors.New("dial refused")
	}))

	req := &core.GenerationRequest{Prompt: "a cat"}
	route := &core.RoutingContext{BackendID: "gemini", APIKey: core.NewSecret("gm_key")}

	_, err := g.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestBuildParts(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
	req := &core.GenerationRequest{
		Prompt:          "a fox",
		NegativePrompt:  "blurry",
		ReferenceImages: []string{uri},
	}

	parts, err := BuildParts(req)
	if err != nil {
		t.Fatalf("BuildParts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	text, ok := parts[0].(genai.Text)
	if !ok || string(text) != "a fox\nAvoid: blurry" {
		t.Fatalf("text part = %#v", parts[0])
	}
	blob, ok := parts[1].(genai.Blob)
	if !ok {
		t.Fatalf("blob part = %#v", parts[1])
	}
	if blob.MIMEType != "image/jpeg" || string(blob.Data) != string(raw) {
		t.Fatalf("blob = %+v", blob)
	}
}

func TestBuildPartsRejectsNonDataURI(t *testing.T) {
	req := &core.GenerationRequest{
		Prompt:          "a fox",
		ReferenceImages: []string{"https://example.com/ref.png"},
	}
	_, err := BuildParts(req)
	if !errors.Is(err, core.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestExtractImages(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("here you go"),
				genai.Blob{MIMEType: "image/png", Data: []byte("png-bytes")},
				genai.Blob{MIMEType: "image/webp", Data: []byte("webp-bytes")},
			}}},
			{Content: nil},
		},
	}

	images, text := ExtractImages(resp)
	if len(images) != 2 {
		t.Fatalf("images = %d, want 2", len(images))
	}
	if images[0].MIMEType != "image/png" || images[1].MIMEType != "image/webp" {
		t.Fatalf("mime types = %q, %q", images[0].MIMEType, images[1].MIMEType)
	}
	if text != "here you go" {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractImagesTextOnly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("I cannot produce that image."),
			}}},
		},
	}
	images, text := ExtractImages(resp)
	if len(images) != 0 {
		t.Fatalf("images = %d, want 0", len(images))
	}
	if text != "I cannot produce that image." {
		t.Fatalf("text = %q", text)
	}
}
