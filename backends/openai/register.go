package openai

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("openai", func() backends.Backend { return New() })
}
