package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-labs/prism/core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type dispatchCall struct {
	req   *core.GenerationRequest
	route *core.RoutingContext
}

// stubDispatcher records calls and replays a canned result.
type stubDispatcher struct {
	calls []dispatchCall
	resp  *core.GenerationResponse
	err   error
}

func (s *stubDispatcher) dispatch(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	s.calls = append(s.calls, dispatchCall{req: req, route: route})
	return s.resp, s.err
}

func newTestServer(stub *stubDispatcher) *httptest.Server {
	h := New(WithDispatcher(stub.dispatch))
	return httptest.NewServer(h.Router())
}

func TestGenerateImagesRoutesFromHeaders(t *testing.T) {
	stub := &stubDispatcher{resp: &core.GenerationResponse{Images: []core.GeneratedImage{
		core.URLImage("https://cdn.example.com/1.png"),
	}}}
	server := newTestServer(stub)
	defer server.Close()

	body := strings.NewReader(`{"prompt":"a fox","width":512,"height":768,"n":2}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/images/generations", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Backend", "novelai")
	req.Header.Set("Authorization", "Bearer nai-key")
	req.Header.Set("X-Base-Url", "https://alt.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, "a fox", call.req.Prompt)
	assert.Equal(t, 512, call.req.Width)
	assert.Equal(t, 2, call.req.BatchCount)
	assert.Equal(t, "novelai", call.route.BackendID)
	assert.Equal(t, "nai-key", call.route.APIKey.Expose())
	assert.Equal(t, "https://alt.example.com", call.route.BaseURL)

	var out imagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "https://cdn.example.com/1.png", out.Data[0].URL)
	assert.NotZero(t, out.Created)
}

func TestGenerateImagesDefaultsBackend(t *testing.T) {
	stub := &stubDispatcher{resp: &core.GenerationResponse{Images: []core.GeneratedImage{
		core.InlineImage([]byte("png-bytes"), "image/png"),
	}}}
	server := newTestServer(stub)
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/images/generations", "application/json",
		strings.NewReader(`{"prompt":"a fox"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "a1111", stub.calls[0].route.BackendID)

	var out imagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Empty(t, out.Data[0].URL)
	assert.Equal(t, "cG5nLWJ5dGVz", out.Data[0].B64JSON)
}

func TestGenerateImagesErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", core.ErrInvalidRequest, http.StatusBadRequest},
		{"unknown backend", core.ErrUnknownBackend, http.StatusBadRequest},
		{"missing credential", core.ErrMissingCredential, http.StatusUnauthorized},
		{"timeout", core.ErrTimeout, http.StatusGatewayTimeout},
		{"provider failure", &core.BackendError{Backend: "x", Message: "boom", Err: core.ErrProvider}, http.StatusBadGateway},
		{"parse failure", core.ErrParse, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&stubDispatcher{err: tt.err})
			defer server.Close()

			resp, err := http.Post(server.URL+"/v1/images/generations", "application/json",
				strings.NewReader(`{"prompt":"a fox"}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)

			var out errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out.Error.Message)
		})
	}
}

func TestGenerateImagesMalformedBody(t *testing.T) {
	stub := &stubDispatcher{}
	server := newTestServer(stub)
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/images/generations", "application/json",
		strings.NewReader(`{"prompt": 42`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, stub.calls)
}

func TestChatCompletionsShim(t *testing.T) {
	stub := &stubDispatcher{resp: &core.GenerationResponse{Images: []core.GeneratedImage{
		core.URLImage("https://img.example.com/out.png"),
	}}}
	server := newTestServer(stub)
	defer server.Close()

	body := `{"model":"whatever","messages":[
		{"role":"system","content":"you are helpful"},
		{"role":"user","content":"please draw an image of a fox"}]}`
	resp, err := http.Post(server.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "please draw an image of a fox", stub.calls[0].req.Prompt)
	assert.Equal(t, "pollinations", stub.calls[0].route.BackendID)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "assistant", out.Choices[0].Message.Role)
	assert.Contains(t, out.Choices[0].Message.Content, "![generated image](https://img.example.com/out.png)")
	assert.Equal(t, "stop", out.Choices[0].FinishReason)
}

func TestChatCompletionsRejectsNonImageRequest(t *testing.T) {
	stub := &stubDispatcher{}
	server := newTestServer(stub)
	defer server.Close()

	body := `{"messages":[{"role":"user","content":"what is the capital of France?"}]}`
	resp, err := http.Post(server.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, stub.calls)
}

func TestChatCompletionsBackendOverride(t *testing.T) {
	stub := &stubDispatcher{resp: &core.GenerationResponse{Images: []core.GeneratedImage{
		core.URLImage("https://img.example.com/out.png"),
	}}}
	server := newTestServer(stub)
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/chat/completions",
		strings.NewReader(`{"messages":[{"role":"user","content":"generate a picture of a cat"}]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Backend", "nanogpt")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "nanogpt", stub.calls[0].route.BackendID)
}

func TestLooksLikeImageRequest(t *testing.T) {
	yes := []string{
		"generate an image of a fox",
		"Please DRAW a picture of my dog",
		"create some art of a sunset",
		"imagine a castle in the clouds",
	}
	no := []string{
		"what is the capital of France?",
		"generate a summary of this text",
		"draw your own conclusions",
	}
	for _, s := range yes {
		assert.True(t, looksLikeImageRequest(s), s)
	}
	for _, s := range no {
		assert.False(t, looksLikeImageRequest(s), s)
	}
}

func TestListModels(t *testing.T) {
	server := newTestServer(&stubDispatcher{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out modelList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "list", out.Object)
}

func TestRelayModels(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer upstream-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":["alpha","beta"]}`))
	}))
	defer upstream.Close()

	server := newTestServer(&stubDispatcher{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/proxy/models?url=" + upstream.URL + "/models&key=upstream-key")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out["models"], 2)
}

func TestRelayModelsRequiresURL(t *testing.T) {
	server := newTestServer(&stubDispatcher{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/proxy/models")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
