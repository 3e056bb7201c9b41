package pixai

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("pixai", func() backends.Backend {
		return New()
	})
}
