package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prism-labs/prism/server"
)

func (a *App) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy server",
		Long: `Run the OpenAI-compatible HTTP proxy. Clients pick the backend per
request via the X-Backend header and supply credentials in the
Authorization header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.noEnv {
				// Missing .env is fine; serve still picks up real env vars.
				if err := godotenv.Load(); err == nil {
					fmt.Fprintln(a.stderr, "loaded environment from .env")
				}
			}

			fmt.Fprintf(a.stderr, "listening on %s\n", a.addr)
			h := server.New(server.WithSink(a.sink()))
			return h.Serve(a.addr)
		},
	}

	cmd.Flags().StringVar(&a.addr, "addr", ":8787", "listen address")
	cmd.Flags().BoolVar(&a.noEnv, "no-env", false, "skip loading .env")

	return cmd
}
