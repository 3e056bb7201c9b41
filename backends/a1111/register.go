package a1111

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("a1111", func() backends.Backend {
		return New()
	})
}
