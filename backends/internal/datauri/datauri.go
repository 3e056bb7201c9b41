// Package datauri decodes the data URI scheme used for inline image inputs:
// data:<mime>;base64,<payload>.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNotDataURI is returned for strings that do not use the data: scheme.
var ErrNotDataURI = errors.New("not a data URI")

// Image is a decoded inline image.
type Image struct {
	MIMEType string
	Data     []byte
}

// Decode parses a data:<mime>;base64,<payload> URI. The MIME type defaults
// to image/png when the URI omits it.
func Decode(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: %.16q", ErrNotDataURI, uri)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload separator")
	}

	mime := meta
	if enc, found := strings.CutSuffix(meta, ";base64"); found {
		mime = enc
	} else {
		return nil, fmt.Errorf("data URI is not base64 encoded: %q", meta)
	}
	if mime == "" {
		mime = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI payload: %w", err)
	}

	return &Image{MIMEType: mime, Data: data}, nil
}

// DecodeLoose accepts either a data URI or a bare base64 string, defaulting
// the MIME type to image/png for the latter. Providers that take raw base64
// image inputs route through this.
func DecodeLoose(s string) (*Image, error) {
	if strings.HasPrefix(s, "data:") {
		return Decode(s)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return &Image{MIMEType: "image/png", Data: data}, nil
}
