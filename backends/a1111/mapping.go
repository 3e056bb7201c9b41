package a1111

// samplerNames maps canonical sampler tokens to the WebUI's display names.
// Unrecognized tokens pass through verbatim.
var samplerNames = map[string]string{
	"euler":           "Euler",
	"euler_ancestral": "Euler a",
	"dpmpp_2m":        "DPM++ 2M",
	"dpmpp_2m_sde":    "DPM++ 2M SDE",
	"dpmpp_sde":       "DPM++ SDE",
	"dpmpp_3m_sde":    "DPM++ 3M SDE",
	"ddim":            "DDIM",
	"uni_pc":          "UniPC",
	"lcm":             "LCM",
	"heun":            "Heun",
}

// schedulerSuffixes maps canonical scheduler tokens to the suffix the WebUI
// expects appended to the sampler name. The "normal" scheduler appends
// nothing.
var schedulerSuffixes = map[string]string{
	"karras":      "Karras",
	"exponential": "Exponential",
	"sgm_uniform": "SGM Uniform",
	"simple":      "Simple",
	"normal":      "",
}

// defaultSampler is used when the canonical request names no sampler.
const defaultSampler = "DPM++ 2M"

// NativeSampler builds the WebUI sampler identifier. The WebUI does not take
// the scheduler as a separate field: it is a suffix concatenated onto the
// sampler name ("Euler" + "karras" ⇒ "Euler Karras"), except for the
// "normal" scheduler which appends nothing.
func NativeSampler(sampler, scheduler string) string {
	name := defaultSampler
	if sampler != "" {
		if mapped, ok := samplerNames[sampler]; ok {
			name = mapped
		} else {
			name = sampler
		}
	}

	suffix, ok := schedulerSuffixes[scheduler]
	if !ok {
		// unknown scheduler tokens ride along verbatim
		suffix = scheduler
	}
	if suffix == "" {
		return name
	}
	return name + " " + suffix
}
