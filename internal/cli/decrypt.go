package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai8future/encdoc"
)

// NewDecryptCommand creates the decrypt command.
func NewDecryptCommand(rootOpts *RootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decode an encrypted record into its plaintext document",
		Long: `Read an encrypted record in the configured wire format and print the
document as JSON. Fails if none of the configured keys is a recipient.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			data, err := readInput(cmd, input)
			if err != nil {
				return fmt.Errorf("failed to read record: %w", err)
			}
			rec, err := encdoc.UnmarshalRecord(data, s.format)
			if err != nil {
				return err
			}
			doc, err := s.codec.DecodeRecord(rec)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}

	cmd.Flags().StringVarP(&input, "in", "i", "-", "record file (- for stdin)")
	return cmd
}
