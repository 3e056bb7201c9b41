package stability

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("stability", func() backends.Backend { return New() })
}
