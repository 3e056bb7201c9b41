package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prism-labs/prism/core"
)

func TestCompletionsURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.example.com", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1/chat/completions", "https://api.example.com/v1/chat/completions"},
		{"http://localhost:11434/api/v1", "http://localhost:11434/api/v1/chat/completions"},
		{"https://api.example.com/v1/images/generations", "https://api.example.com/v1/images/generations"},
	}
	for _, tt := range tests {
		if got := CompletionsURL(tt.in); got != tt.want {
			t.Errorf("CompletionsURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateRequiresBaseURL(t *testing.T) {
	c := New()
	req := &core.GenerationRequest{Prompt: "a cat"}
	route := &core.RoutingContext{BackendID: "chat"}

	_, err := c.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestGenerateStructuredImages(t *testing.T) {
	raw := []byte("png-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if len(payload.Messages) != 1 || !strings.Contains(payload.Messages[0].Content, "a fox") {
			t.Errorf("messages = %+v", payload.Messages)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"here","images":["data:image/png;base64,` +
			base64.StdEncoding.EncodeToString(raw) + `"]}}]}`))
	}))
	defer server.Close()

	c := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "chat", BaseURL: server.URL}

	resp, err := c.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 1 || string(resp.Images[0].Data) != string(raw) {
		t.Fatalf("images = %+v", resp.Images)
	}
}

func TestGenerateObjectImageEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"done","images":[` +
			`{"image_url":{"url":"https://cdn.example.com/gen.png"}},` +
			`{"url":"https://cdn.example.com/alt.png"}]}}]}`))
	}))
	defer server.Close()

	c := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "chat", BaseURL: server.URL}

	resp, err := c.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %+v, want 2", resp.Images)
	}
	if resp.Images[0].URL != "https://cdn.example.com/gen.png" || resp.Images[1].URL != "https://cdn.example.com/alt.png" {
		t.Fatalf("images = %+v", resp.Images)
	}
}

func TestGenerateForwardsReferenceImages(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("ref"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if len(payload.Messages) != 1 || len(payload.Messages[0].Content) != 2 {
			t.Fatalf("messages = %+v", payload.Messages)
		}
		parts := payload.Messages[0].Content
		if parts[0].Type != "text" || !strings.Contains(parts[0].Text, "a fox") {
			t.Errorf("text part = %+v", parts[0])
		}
		if parts[1].Type != "image_url" || parts[1].ImageURL == nil || parts[1].ImageURL.URL != ref {
			t.Errorf("image part = %+v", parts[1])
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"![img](https://cdn.example.com/edit.png)"}}]}`))
	}))
	defer server.Close()

	c := New()
	req := &core.GenerationRequest{Prompt: "a fox", ReferenceImages: []string{ref}}
	route := &core.RoutingContext{BackendID: "chat", BaseURL: server.URL}

	resp, err := c.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 1 || resp.Images[0].URL != "https://cdn.example.com/edit.png" {
		t.Fatalf("images = %+v", resp.Images)
	}
}

func TestGenerateScrapesMarkdownLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"Here you go! ![img](https://cdn.example.com/out.png) enjoy"}}]}`))
	}))
	defer server.Close()

	c := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "chat", BaseURL: server.URL}

	resp, err := c.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 1 || resp.Images[0].URL != "https://cdn.example.com/out.png" {
		t.Fatalf("images = %+v", resp.Images)
	}
}

func TestGenerateImagelessReplyIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"I am a text model and cannot draw."}}]}`))
	}))
	defer server.Close()

	c := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "chat", BaseURL: server.URL}

	_, err := c.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
	if !strings.Contains(err.Error(), "cannot draw") {
		t.Fatalf("err lost the reply text: %v", err)
	}
}

func TestExtractImages(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("x"))

	images, err := ExtractImages([]string{"https://a/1.png", b64, "!!!"}, "")
	if err != nil {
		t.Fatalf("ExtractImages: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("images = %d, want 2 (undecodable entry skipped)", len(images))
	}
	if images[0].URL != "https://a/1.png" || !images[1].IsInline() {
		t.Fatalf("images = %+v", images)
	}

	images, err = ExtractImages(nil, "one https://a/x.jpeg?sig=abc and two https://a/y.webp here")
	if err != nil {
		t.Fatalf("ExtractImages (scrape): %v", err)
	}
	if len(images) != 2 || images[0].URL != "https://a/x.jpeg?sig=abc" {
		t.Fatalf("scraped = %+v", images)
	}

	if _, err := ExtractImages(nil, "no links at all"); err == nil {
		t.Fatal("want error for imageless reply")
	}
}
