// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/prism-labs/prism/backends"
	_ "github.com/prism-labs/prism/backends/registered"
	"github.com/prism-labs/prism/cli/config"
	"github.com/prism-labs/prism/cli/keystore"
	"github.com/prism-labs/prism/core"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// Dispatcher routes a canonical request to a backend.
type Dispatcher func(ctx context.Context, req *core.GenerationRequest, route *core.RoutingContext, sink core.ProgressSink) (*core.GenerationResponse, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	dispatch    Dispatcher
	newKeystore KeystoreFactory
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	backend    string
	jsonOutput bool
	verbose    bool
	cfg        *config.Config

	gen   generateFlags
	addr  string
	noEnv bool
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithDispatcher injects the dispatch function, replacing the registry.
func WithDispatcher(d Dispatcher) AppOption {
	return func(a *App) {
		if d != nil {
			a.dispatch = d
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		dispatch:    backends.Generate,
		newKeystore: keystore.NewKeystore,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "prism",
		Short: "Prism - one image API over many generation backends",
		Long: `Prism routes image generation requests to self-hosted and hosted
backends behind a single request model.

Use prism to generate images, manage API keys, and run the HTTP proxy.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage: true,
	}

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.prism/config.yaml)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "backend ID (a1111, comfyui, novelai, ...)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newGenerateCommand())
	root.AddCommand(a.newBackendsCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newServeCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.root.Execute()
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Apply config defaults if flags not set.
	if a.backend == "" && cfg.DefaultBackend != "" {
		a.backend = cfg.DefaultBackend
	}

	return nil
}

// sink returns the progress sink for a run: stderr logging when verbose,
// otherwise silent.
func (a *App) sink() core.ProgressSink {
	if !a.verbose {
		return core.NopSink{}
	}
	return core.LogFunc(func(level core.LogLevel, message string) {
		fmt.Fprintf(a.stderr, "[%s] %s\n", level, message)
	})
}

// Execute runs the default app root command.
func Execute() error {
	return NewApp().Execute()
}
