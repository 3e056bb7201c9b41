package core

import (
	"fmt"
	"math/rand"
	"strings"
)

// LoRA is an opaque model-weight overlay some providers accept as a
// generation parameter.
type LoRA struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// GenerationRequest is the canonical, provider-agnostic input.
//
// Numeric fields use the zero value to mean "unset": adapters apply their own
// provider-specific defaults for anything left at zero. Defaults differ
// significantly across providers and are deliberately not unified here.
type GenerationRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	CFGScale       float64 `json:"cfg_scale,omitempty"`

	// Sampler and Scheduler are free-form tokens (e.g. "euler", "karras").
	// Each adapter maps them through its own lookup table; unrecognized
	// tokens pass through verbatim.
	Sampler   string `json:"sampler,omitempty"`
	Scheduler string `json:"scheduler,omitempty"`

	// Seed is nil (or negative) when the provider should pick its own.
	// Zero is a valid, deterministic seed for some providers.
	Seed *int64 `json:"seed,omitempty"`

	// BatchCount is the number of images requested. Values below 1 are
	// treated as 1; each provider additionally caps it at its own maximum.
	BatchCount int `json:"n,omitempty"`

	Model string `json:"model,omitempty"`
	LoRAs []LoRA `json:"loras,omitempty"`

	// Image-to-image / inpainting inputs. Base64 or data URI encoded.
	InitImage string  `json:"init_image,omitempty"`
	Mask      string  `json:"mask,omitempty"`
	Strength  float64 `json:"strength,omitempty"`

	// ReferenceImages are data URIs used by multimodal providers for
	// conditioned generation. They are inputs, never outputs.
	ReferenceImages []string `json:"reference_images,omitempty"`

	// ProviderOptions is an opaque extension bag interpreted only by
	// specific adapters (e.g. a ComfyUI workflow graph).
	ProviderOptions map[string]any `json:"provider_options,omitempty"`
}

// Validate checks the canonical invariants. Absent (zero) numeric fields mean
// "use the provider default" and are never an error; explicitly negative
// values are rejected.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt must not be empty", ErrInvalidRequest)
	}
	if r.Width < 0 {
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidRequest, r.Width)
	}
	if r.Height < 0 {
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidRequest, r.Height)
	}
	if r.Steps < 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidRequest, r.Steps)
	}
	if r.CFGScale < 0 {
		return fmt.Errorf("%w: cfg_scale must be positive, got %g", ErrInvalidRequest, r.CFGScale)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("%w: strength must be within [0,1], got %g", ErrInvalidRequest, r.Strength)
	}
	for i, l := range r.LoRAs {
		if l.ID == "" {
			return fmt.Errorf("%w: lora %d has an empty id", ErrInvalidRequest, i)
		}
	}
	return nil
}

// HasSeed reports whether the caller pinned a non-negative seed.
func (r *GenerationRequest) HasSeed() bool {
	return r.Seed != nil && *r.Seed >= 0
}

// SeedOrRandom returns the pinned seed, or a random value in [0, max) when
// the seed is absent or negative.
func (r *GenerationRequest) SeedOrRandom(max int64) int64 {
	if r.HasSeed() {
		return *r.Seed
	}
	return rand.Int63n(max)
}

// EffectiveBatch returns the batch count clamped to [1, max]. A max below 1
// means the provider imposes no cap.
func (r *GenerationRequest) EffectiveBatch(max int) int {
	n := r.BatchCount
	if n < 1 {
		n = 1
	}
	if max >= 1 && n > max {
		n = max
	}
	return n
}

// Seed64 is a convenience for building requests with a pinned seed.
func Seed64(v int64) *int64 { return &v }
