// Package cli provides the command-line interface for the trading application.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"zerodha-trader/internal/config"
	"zerodha-trader/internal/security"
)

// addCredentialCommands adds the credential-vault commands built on
// internal/security's CredentialManager: encrypting the plaintext
// credentials.toml into an AES-256-GCM vault (credentials.enc) protected
// by a master password, so the broker/LLM keys no longer sit on disk in
// the clear.
func addCredentialCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCredentialsEncryptCmd(app))
}

func newCredentialsEncryptCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "credentials-encrypt",
		Short: "Encrypt credentials.toml into an AES-256-GCM vault",
		Long: `Migrate ~/.config/zerodha-trader/credentials.toml into an encrypted
credentials.enc protected by a master password (PBKDF2 + AES-256-GCM). The
plaintext file is left in place; delete it by hand once you've verified the
vault decrypts correctly.`,
		Example: `  trader credentials-encrypt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			configDir := config.DefaultConfigDir()
			plainPath := configDir + "/credentials.toml"
			if _, err := os.Stat(plainPath); err != nil {
				return NewExitError(1, fmt.Errorf("no credentials.toml found at %s", plainPath))
			}

			output.Bold("Credential encryption")
			output.Dim("This password will be required on every future startup to decrypt credentials.")
			fmt.Print("Master password: ")
			reader := bufio.NewReader(os.Stdin)
			password, _ := reader.ReadString('\n')
			password = strings.TrimSpace(password)
			if password == "" {
				return NewExitError(2, fmt.Errorf("master password cannot be empty"))
			}

			cm := security.NewCredentialManager(configDir, 0)
			if err := cm.Initialize(password); err != nil {
				return NewExitError(1, fmt.Errorf("encrypting credentials: %w", err))
			}
			if app.Audit != nil {
				app.Audit.Log(cmd.Context(), security.AuditEvent{
					EventType: security.AuditConfigChanged,
					Action:    "created encrypted credential vault",
					Success:   true,
				})
			}

			output.Success("✓ Wrote %s/credentials.enc", configDir)
			output.Dim("credentials.toml was left untouched; remove it once you trust the vault.")
			return nil
		},
	}
}
