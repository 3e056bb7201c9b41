package nanogpt

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("nanogpt", func() backends.Backend {
		return New()
	})
}
