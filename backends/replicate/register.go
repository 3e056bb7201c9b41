package replicate

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("replicate", func() backends.Backend { return New() })
}
