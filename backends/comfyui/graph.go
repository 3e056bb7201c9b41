package comfyui

import (
	"fmt"
	"strings"

	"github.com/prism-labs/prism/core"
)

// Placeholder tokens recognized inside workflow graphs. Every string-valued
// field anywhere in the graph is scanned for these markers.
const (
	TokenPrompt         = "%prompt%"
	TokenNegativePrompt = "%negative_prompt%"
	TokenSeed           = "%seed%"
	TokenSteps          = "%steps%"
	TokenCFG            = "%cfg%"
	TokenSampler        = "%sampler%"
	TokenScheduler      = "%scheduler%"
	TokenWidth          = "%width%"
	TokenHeight         = "%height%"
	TokenBatchSize      = "%batch_size%"
	TokenModel          = "%model%"
)

// placeholderValues builds the token table for one request. seed is resolved
// up front so every occurrence in the graph sees the same value.
func placeholderValues(req *core.GenerationRequest, seed int64) map[string]any {
	model := req.Model
	if model == "" {
		model = defaultCheckpoint
	}
	sampler := req.Sampler
	if sampler == "" {
		sampler = defaultSampler
	}
	scheduler := req.Scheduler
	if scheduler == "" {
		scheduler = defaultScheduler
	}
	cfg := req.CFGScale
	if cfg == 0 {
		cfg = defaultCFGScale
	}

	return map[string]any{
		TokenPrompt:         req.Prompt,
		TokenNegativePrompt: req.NegativePrompt,
		TokenSeed:           seed,
		TokenSteps:          intOr(req.Steps, defaultSteps),
		TokenCFG:            cfg,
		TokenSampler:        sampler,
		TokenScheduler:      scheduler,
		TokenWidth:          intOr(req.Width, defaultWidth),
		TokenHeight:         intOr(req.Height, defaultHeight),
		TokenBatchSize:      req.EffectiveBatch(0),
		TokenModel:          model,
	}
}

// Substitute returns a copy of node with every placeholder occurrence
// replaced. It recurses through nested objects and arrays and never mutates
// its input; the structural shape of the graph (keys, nesting) is preserved.
//
// A string that is exactly one token becomes the typed value, so numeric
// node inputs stay numeric. Tokens embedded in longer strings are replaced
// textually.
func Substitute(node any, values map[string]any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = Substitute(child, values)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Substitute(child, values)
		}
		return out
	case string:
		return substituteString(v, values)
	default:
		return v
	}
}

func substituteString(s string, values map[string]any) any {
	if exact, ok := values[s]; ok {
		return exact
	}
	if !strings.Contains(s, "%") {
		return s
	}
	for token, value := range values {
		if strings.Contains(s, token) {
			s = strings.ReplaceAll(s, token, fmt.Sprint(value))
		}
	}
	return s
}

// defaultWorkflow is the built-in txt2img node graph used when the caller
// supplies none. It mirrors a minimal checkpoint → KSampler → VAEDecode →
// SaveImage pipeline with every tunable expressed as a placeholder.
func defaultWorkflow() map[string]any {
	return map[string]any{
		"3": map[string]any{
			"class_type": "KSampler",
			"inputs": map[string]any{
				"seed":         TokenSeed,
				"steps":        TokenSteps,
				"cfg":          TokenCFG,
				"sampler_name": TokenSampler,
				"scheduler":    TokenScheduler,
				"denoise":      1,
				"model":        []any{"4", 0},
				"positive":     []any{"6", 0},
				"negative":     []any{"7", 0},
				"latent_image": []any{"5", 0},
			},
		},
		"4": map[string]any{
			"class_type": "CheckpointLoaderSimple",
			"inputs":     map[string]any{"ckpt_name": TokenModel},
		},
		"5": map[string]any{
			"class_type": "EmptyLatentImage",
			"inputs": map[string]any{
				"width":      TokenWidth,
				"height":     TokenHeight,
				"batch_size": TokenBatchSize,
			},
		},
		"6": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs":     map[string]any{"text": TokenPrompt, "clip": []any{"4", 1}},
		},
		"7": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs":     map[string]any{"text": TokenNegativePrompt, "clip": []any{"4", 1}},
		},
		"8": map[string]any{
			"class_type": "VAEDecode",
			"inputs":     map[string]any{"samples": []any{"3", 0}, "vae": []any{"4", 2}},
		},
		"9": map[string]any{
			"class_type": "SaveImage",
			"inputs":     map[string]any{"filename_prefix": "prism", "images": []any{"8", 0}},
		},
	}
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
