package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	dserrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/zalando/go-keyring"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var tokenStdin bool

	cmd := &cobra.Command{
		Use:   "login <store>",
		Short: "Store the API token for a cluster store",
		Long: `Save the API token a cluster store entry authenticates with.

The token goes into the OS keyring under the store's entry name and is
read back on every command. Cloud-backed stores authenticate through
their SDK credential chains and do not use login.

Examples:
  # Prompt for the token
  secretctl login cluster

  # Read the token from stdin (CI)
  echo "$TOKEN" | secretctl login cluster --token-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			name := args[0]
			entry, err := cfg.GetStore(name)
			if err != nil {
				return err
			}
			if entry.Type != "cluster" {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Store '%s' has type '%s'; login only applies to cluster stores", name, entry.Type),
					Suggestion: "Cloud stores authenticate through their SDK credential chain",
				}
			}

			if cfg.NonInteractive && !tokenStdin {
				return dserrors.UserError{
					Message:    "Cannot prompt for a token in non-interactive mode",
					Suggestion: "Pipe the token with --token-stdin",
				}
			}

			token, err := readToken(cmd, tokenStdin)
			if err != nil {
				return err
			}
			if token == "" {
				return dserrors.UserError{
					Message:    "Empty token",
					Suggestion: "Paste the token at the prompt, or pipe it with --token-stdin",
				}
			}

			if err := keyring.Set(stores.KeyringService, name, token); err != nil {
				return fmt.Errorf("failed to store token in keyring: %w", err)
			}

			cfg.Logger.Info("Token stored for %s", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from stdin instead of prompting")

	return cmd
}

// readToken reads the API token from the command's input, either wholesale
// (--token-stdin) or as one line after a prompt on stderr. The prompt goes
// to stderr so piped stdout stays clean.
func readToken(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	fmt.Fprint(os.Stderr, "Token: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
