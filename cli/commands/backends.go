package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prism-labs/prism/backends"
)

func (a *App) newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := backends.List()

			if a.jsonOutput {
				return json.NewEncoder(a.stdout).Encode(ids)
			}

			for _, id := range ids {
				line := id
				if b := backends.Get(id); b != nil {
					needs := b.Needs()
					switch {
					case needs.APIKey && needs.BaseURL:
						line += " (requires API key and base URL)"
					case needs.APIKey:
						line += " (requires API key)"
					case needs.BaseURL:
						line += " (requires base URL)"
					}
				}
				fmt.Fprintln(a.stdout, line)
			}
			return nil
		},
	}
}
