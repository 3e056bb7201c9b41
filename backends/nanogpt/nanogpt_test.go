package nanogpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prism-labs/prism/core"
)

func TestGenerateRequiresAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := New().Generate(context.Background(), &core.GenerationRequest{Prompt: "x"},
		&core.RoutingContext{BaseURL: server.URL}, nil)
	if !errors.Is(err, core.ErrMissingCredential) {
		t.Fatalf("error = %v, want ErrMissingCredential", err)
	}
	if called {
		t.Error("outbound call issued despite missing API key")
	}
}

func TestGenerate(t *testing.T) {
	var submitted imageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&submitted)
		json.NewEncoder(w).Encode(imageResponse{Data: []imageDatum{{URL: "https://cdn.nano-gpt.com/img1.png"}}})
	}))
	defer server.Close()

	resp, err := New().Generate(context.Background(), &core.GenerationRequest{Prompt: "a cat"},
		&core.RoutingContext{APIKey: core.NewSecret("test-key"), BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if submitted.Model != "flux-schnell" {
		t.Errorf("model = %q, want default flux-schnell", submitted.Model)
	}
	if submitted.N != 1 {
		t.Errorf("n = %d, want 1", submitted.N)
	}
	if len(resp.Images) != 1 || resp.Images[0].URL == "" {
		t.Fatalf("images = %+v, want one URL image", resp.Images)
	}
}

func TestGenerateInlineBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(imageResponse{Data: []imageDatum{{B64JSON: "aW1hZ2U="}}})
	}))
	defer server.Close()

	resp, err := New().Generate(context.Background(), &core.GenerationRequest{Prompt: "x"},
		&core.RoutingContext{APIKey: core.NewSecret("k"), BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Images[0].Data) != "image" {
		t.Errorf("decoded bytes = %q", resp.Images[0].Data)
	}
}

func TestGenerateProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"insufficient balance"}}`))
	}))
	defer server.Close()

	_, err := New().Generate(context.Background(), &core.GenerationRequest{Prompt: "x"},
		&core.RoutingContext{APIKey: core.NewSecret("k"), BaseURL: server.URL}, nil)

	var be *core.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error = %T, want *core.BackendError", err)
	}
	if be.Status != http.StatusPaymentRequired {
		t.Errorf("Status = %d, want 402", be.Status)
	}
	if be.Body == "" {
		t.Error("provider body not carried on the error")
	}
}
