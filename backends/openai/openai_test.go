package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prism-labs/prism/core"
)

func TestGenerateRequiresAPIKey(t *testing.T) {
	o := New()
	req := &core.GenerationRequest{Prompt: "a cat"}
	route := &core.RoutingContext{BackendID: "openai"}

	_, err := o.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestSizeString(t *testing.T) {
	tests := []struct {
		width, height int
		want          string
	}{
		{1024, 1024, "1024x1024"},
		{512, 768, "512x768"},
		{0, 0, "1024x1024"},
		{512, 0, "1024x1024"},
	}
	for _, tt := range tests {
		if got := SizeString(tt.width, tt.height); got != tt.want {
			t.Errorf("SizeString(%d, %d) = %q, want %q", tt.width, tt.height, got, tt.want)
		}
	}
}

func TestGenerateURLImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var payload imageRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "dall-e-3" || payload.N != 2 || payload.Size != "512x768" {
			t.Errorf("payload = %+v", payload)
		}
		json.NewEncoder(w).Encode(imageResponse{Data: []imageDatum{
			{URL: "https://cdn.example.com/1.png"},
			{URL: "https://cdn.example.com/2.png"},
		}})
	}))
	defer server.Close()

	o := New()
	req := &core.GenerationRequest{Prompt: "a fox", Width: 512, Height: 768, BatchCount: 2}
	route := &core.RoutingContext{BackendID: "openai", APIKey: core.NewSecret("sk-test"), BaseURL: server.URL}

	resp, err := o.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 2 || resp.Images[0].URL != "https://cdn.example.com/1.png" {
		t.Fatalf("images = %+v", resp.Images)
	}
}

func TestGenerateBase64Image(t *testing.T) {
	raw := []byte("png-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(imageResponse{Data: []imageDatum{
			{B64JSON: base64.StdEncoding.EncodeToString(raw)},
		}})
	}))
	defer server.Close()

	o := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "openai", APIKey: core.NewSecret("sk-test"), BaseURL: server.URL}

	resp, err := o.Generate(context.Background(), req, route, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 1 || string(resp.Images[0].Data) != string(raw) {
		t.Fatalf("images = %+v", resp.Images)
	}
	if resp.Images[0].MIMEType != "image/png" {
		t.Fatalf("mime = %q", resp.Images[0].MIMEType)
	}
}

func TestGenerateSurfacesAPIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"content policy violation"}}`))
	}))
	defer server.Close()

	o := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "openai", APIKey: core.NewSecret("sk-test"), BaseURL: server.URL}

	_, err := o.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	var be *core.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %T", err)
	}
	if be.Status != http.StatusBadRequest || be.Message != "content policy violation" {
		t.Fatalf("backend error = %+v", be)
	}
}

func TestGenerateEmptyDataIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	o := New()
	req := &core.GenerationRequest{Prompt: "a fox"}
	route := &core.RoutingContext{BackendID: "openai", APIKey: core.NewSecret("sk-test"), BaseURL: server.URL}

	_, err := o.Generate(context.Background(), req, route, nil)
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
