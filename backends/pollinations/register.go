package pollinations

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("pollinations", func() backends.Backend {
		return New()
	})
}
