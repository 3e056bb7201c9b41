package chat

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("chat", func() backends.Backend { return New() })
}
