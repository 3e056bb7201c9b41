package novelai

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("novelai", func() backends.Backend {
		return New()
	})
}
