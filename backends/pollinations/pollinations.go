// Package pollinations implements the backend adapter for the free
// Pollinations image service. Pollinations generates images on demand when
// the image URL is fetched, so the adapter is a pure prompt-to-URL template:
// it issues no outbound calls of its own.
package pollinations

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/prism-labs/prism/backends"
	"github.com/prism-labs/prism/core"
)

// DefaultBaseURL is the hosted Pollinations endpoint.
const DefaultBaseURL = "https://image.pollinations.ai"

// Provider defaults.
const (
	defaultWidth  = 512
	defaultHeight = 768
)

// randomSeedMax matches the service's accepted seed range.
const randomSeedMax = 999999

// Pollinations is the prompt-to-URL adapter. Safe for concurrent use.
type Pollinations struct{}

// New creates the adapter.
func New() *Pollinations { return &Pollinations{} }

// ID returns the backend identifier.
func (p *Pollinations) ID() string { return "pollinations" }

// Needs reports no mandatory credentials: the service is free and unkeyed.
func (p *Pollinations) Needs() backends.Requirements { return backends.Requirements{} }

// Generate builds one retrieval URL per requested image. Each image beyond
// a pinned seed gets its own random seed so a batch does not collapse into
// identical results.
func (p *Pollinations) Generate(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error) {
	base := DefaultBaseURL
	if route.HasBaseURL() {
		base = strings.TrimRight(route.BaseURL, "/")
	}

	n := req.EffectiveBatch(0)
	images := make([]core.GeneratedImage, 0, n)
	for i := 0; i < n; i++ {
		seed := req.SeedOrRandom(randomSeedMax)
		if req.HasSeed() && i > 0 {
			// distinct seeds for the rest of a pinned-seed batch
			seed = *req.Seed + int64(i)
		}
		images = append(images, core.URLImage(p.imageURL(base, req, seed)))
	}

	core.EmitLog(sink, core.LogInfo, "pollinations: built "+strconv.Itoa(n)+" image URL(s)")
	return &core.GenerationResponse{Images: images}, nil
}

func (p *Pollinations) imageURL(base string, req *core.GenerationRequest, seed int64) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(valueOr(req.Width, defaultWidth)))
	q.Set("height", strconv.Itoa(valueOr(req.Height, defaultHeight)))
	q.Set("seed", strconv.FormatInt(seed, 10))
	q.Set("nologo", "true")
	if req.Model != "" {
		q.Set("model", req.Model)
	}
	return base + "/prompt/" + url.PathEscape(req.Prompt) + "?" + q.Encode()
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
