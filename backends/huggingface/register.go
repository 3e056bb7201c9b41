package huggingface

import "github.com/prism-labs/prism/backends"

func init() {
	backends.Register("huggingface", func() backends.Backend { return New() })
}
