package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var keyID string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random 32-byte master key",
		Long: `Generate a random 32-byte master key, printed as unpadded base64url.
With --id the key is printed as a YAML entry for the keys section of the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			encoded := base64.RawURLEncoding.EncodeToString(key)
			if keyID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", keyID, encoded)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyID, "id", "", "print as a YAML entry with this key id")
	return cmd
}
