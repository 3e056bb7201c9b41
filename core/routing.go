package core

// RoutingContext is supplied alongside a GenerationRequest, out of band from
// the request body. It selects the backend and carries its credentials.
//
// Whether APIKey or BaseURL is mandatory is declared per backend; adapters
// fail fast with ErrMissingCredential before issuing any outbound call.
type RoutingContext struct {
	// BackendID selects the adapter (e.g. "a1111", "pixai").
	BackendID string

	// APIKey authenticates against hosted providers.
	APIKey Secret

	// BaseURL overrides the provider endpoint. Required for fully custom
	// providers; optional for self-hosted ones, which ship a local default.
	BaseURL string
}

// HasAPIKey reports whether an API key was supplied.
func (rc *RoutingContext) HasAPIKey() bool {
	return rc != nil && !rc.APIKey.IsEmpty()
}

// HasBaseURL reports whether an endpoint override was supplied.
func (rc *RoutingContext) HasBaseURL() bool {
	return rc != nil && rc.BaseURL != ""
}
