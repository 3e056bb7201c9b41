// Package httpx holds the small HTTP plumbing shared by backend adapters:
// context-aware JSON calls that capture the provider status and raw body so
// adapters can build typed errors without re-reading responses.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Response is the raw outcome of a provider call.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Do executes req on client (http.DefaultClient when nil) and reads the full
// body. Transport failures come back as-is for the adapter to classify.
func Do(client *http.Client, req *http.Request) (*Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.StatusCode, Body: body, Header: resp.Header}, nil
}

// PostJSON marshals payload and POSTs it to url with Content-Type
// application/json. A non-empty bearer token is attached as an Authorization
// header.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, bearer string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return Do(client, req)
}

// Get issues a GET to url, attaching a bearer token when non-empty.
func Get(ctx context.Context, client *http.Client, url string, bearer string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return Do(client, req)
}
