package gemini

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("gemini", func() backends.Backend { return New() })
}
