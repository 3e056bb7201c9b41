package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prism-labs/prism/core"
)

type generateFlags struct {
	negative  string
	width     int
	height    int
	steps     int
	cfgScale  float64
	sampler   string
	scheduler string
	seed      int64
	batch     int
	model     string
	baseURL   string
	outDir    string
	timeout   time.Duration
}

func (a *App) newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate images from a prompt",
		Long: `Generate images on the selected backend and write them to disk.
URL results are fetched; inline results are written directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.gen.negative, "negative", "", "negative prompt")
	f.IntVar(&a.gen.width, "width", 0, "image width (backend default when 0)")
	f.IntVar(&a.gen.height, "height", 0, "image height (backend default when 0)")
	f.IntVar(&a.gen.steps, "steps", 0, "sampling steps (backend default when 0)")
	f.Float64Var(&a.gen.cfgScale, "cfg", 0, "guidance scale (backend default when 0)")
	f.StringVar(&a.gen.sampler, "sampler", "", "sampler (e.g. euler, dpmpp_2m)")
	f.StringVar(&a.gen.scheduler, "scheduler", "", "noise schedule (e.g. karras)")
	f.Int64Var(&a.gen.seed, "seed", -1, "seed (-1 lets the backend pick)")
	f.IntVar(&a.gen.batch, "batch", 1, "number of images")
	f.StringVar(&a.gen.model, "model", "", "backend-specific model or checkpoint")
	f.StringVar(&a.gen.baseURL, "base-url", "", "override the backend endpoint")
	f.StringVar(&a.gen.outDir, "out", ".", "output directory")
	f.DurationVar(&a.gen.timeout, "timeout", 5*time.Minute, "overall request timeout")

	return cmd
}

func (a *App) runGenerate(cmd *cobra.Command, prompt string) error {
	backend := a.backend
	if backend == "" {
		backend = "a1111"
	}

	req := &core.GenerationRequest{
		Prompt:         prompt,
		NegativePrompt: a.gen.negative,
		Width:          a.gen.width,
		Height:         a.gen.height,
		Steps:          a.gen.steps,
		CFGScale:       a.gen.cfgScale,
		Sampler:        a.gen.sampler,
		Scheduler:      a.gen.scheduler,
		BatchCount:     a.gen.batch,
		Model:          a.gen.model,
	}
	if a.gen.seed >= 0 {
		req.Seed = core.Seed64(a.gen.seed)
	}
	if req.Model == "" {
		if bc := a.cfg.Backend(backend); bc != nil {
			req.Model = bc.Model
		}
	}

	route := &core.RoutingContext{
		BackendID: backend,
		APIKey:    core.NewSecret(a.resolveAPIKey(backend)),
		BaseURL:   a.gen.baseURL,
	}
	if route.BaseURL == "" {
		if bc := a.cfg.Backend(backend); bc != nil {
			route.BaseURL = bc.BaseURL
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.gen.timeout)
	defer cancel()

	resp, err := a.dispatch(ctx, req, route, a.sink())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.gen.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	for i, img := range resp.Images {
		data := img.Data
		mime := img.MIMEType
		if !img.IsInline() {
			data, mime, err = fetchImage(ctx, img.URL)
			if err != nil {
				return fmt.Errorf("fetch result %d: %w", i, err)
			}
		}

		name := fmt.Sprintf("%s-%s-%d%s", backend, stamp, i+1, extensionFor(mime))
		path := filepath.Join(a.gen.outDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(a.stdout, path)
	}

	return nil
}

func fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
