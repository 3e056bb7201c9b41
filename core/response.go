package core

import "encoding/base64"

// GeneratedImage is one output unit: either inline bytes with a MIME type or
// a retrievable URL. Exactly one of the two forms is populated.
type GeneratedImage struct {
	Data     []byte `json:"data,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

// IsInline reports whether the image carries its bytes directly.
func (g GeneratedImage) IsInline() bool {
	return len(g.Data) > 0
}

// DataURI renders an inline image as a data URI, or returns the URL for a
// URL-kind image.
func (g GeneratedImage) DataURI() string {
	if !g.IsInline() {
		return g.URL
	}
	mime := g.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(g.Data)
}

// InlineImage builds an inline GeneratedImage, defaulting the MIME type to PNG.
func InlineImage(data []byte, mimeType string) GeneratedImage {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return GeneratedImage{Data: data, MIMEType: mimeType}
}

// URLImage builds a URL-kind GeneratedImage.
func URLImage(url string) GeneratedImage {
	return GeneratedImage{URL: url}
}

// GenerationResponse is the canonical result. Image ordering mirrors the
// order the provider returned them in.
type GenerationResponse struct {
	Images []GeneratedImage `json:"images"`

	// ProviderMetadata carries provider-specific extras (revised prompts,
	// task ids, finish reasons) that callers may surface but the core never
	// interprets.
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}
