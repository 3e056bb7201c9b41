package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *App) newKeysCommand() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage backend API keys",
		Long:  `Manage API keys for generation backends. Keys are stored encrypted on disk.`,
	}

	keys.AddCommand(&cobra.Command{
		Use:   "set <backend>",
		Short: "Set the API key for a backend",
		Long:  `Set the API key for a backend. The key is prompted without echo.`,
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysSet,
	})
	keys.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored API keys",
		Long:  `List all stored API keys. Only backend names are shown, never key values.`,
		RunE:  a.runKeysList,
	})
	keys.AddCommand(&cobra.Command{
		Use:   "delete <backend>",
		Short: "Delete the API key for a backend",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysDelete,
	})

	return keys
}

func (a *App) runKeysSet(cmd *cobra.Command, args []string) error {
	backend := args[0]

	fmt.Fprintf(a.stdout, "Enter API key for %s: ", backend)

	// Read without echo when attached to a terminal.
	var apiKey string
	if stdin, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(stdin.Fd())) {
		keyBytes, err := term.ReadPassword(int(stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		apiKey = string(keyBytes)
		fmt.Fprintln(a.stdout) // newline after hidden input
	} else {
		// Fallback for piped input
		reader := bufio.NewReader(a.stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		apiKey = strings.TrimSpace(line)
	}

	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	if err := ks.Set(backend, apiKey); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s stored successfully.\n", backend)
	return nil
}

func (a *App) runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}

	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}

	return nil
}

func (a *App) runKeysDelete(cmd *cobra.Command, args []string) error {
	backend := args[0]

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	if err := ks.Delete(backend); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s deleted.\n", backend)
	return nil
}

// resolveAPIKey finds a backend's key: the keystore entry under the backend
// ID wins, then the config's api_key_ref, then the PRISM_<BACKEND>_API_KEY
// environment variable. Missing everywhere means empty; the dispatcher
// rejects key-requiring backends later with a proper error.
func (a *App) resolveAPIKey(backend string) string {
	if ks, err := a.newKeystore(); err == nil {
		if key, err := ks.Get(backend); err == nil {
			return key
		}
		if bc := a.cfg.Backend(backend); bc != nil && bc.APIKeyRef != "" {
			if key, err := ks.Get(bc.APIKeyRef); err == nil {
				return key
			}
		}
	}

	envName := "PRISM_" + strings.ToUpper(backend) + "_API_KEY"
	return os.Getenv(envName)
}
