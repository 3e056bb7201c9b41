package comfyui

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("comfyui", func() backends.Backend {
		return New()
	})
}
