// Package registered pulls in every built-in backend adapter for its
// registration side effect. Import it blank, driver-style:
//
//	import _ "github.com/prism-labs/prism/backends/registered"
//
// Binaries that want a smaller footprint import individual adapter packages
// instead.
package registered

import (
	_ "github.com/prism-labs/prism/backends/a1111"
	_ "github.com/prism-labs/prism/backends/chat"
	_ "github.com/prism-labs/prism/backends/comfyui"
	_ "github.com/prism-labs/prism/backends/gemini"
	_ "github.com/prism-labs/prism/backends/huggingface"
	_ "github.com/prism-labs/prism/backends/nanogpt"
	_ "github.com/prism-labs/prism/backends/novelai"
	_ "github.com/prism-labs/prism/backends/openai"
	_ "github.com/prism-labs/prism/backends/pixai"
	_ "github.com/prism-labs/prism/backends/pollinations"
	_ "github.com/prism-labs/prism/backends/replicate"
	_ "github.com/prism-labs/prism/backends/stability"
)
