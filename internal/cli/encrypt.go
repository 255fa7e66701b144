package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai8future/encdoc"
)

// EncryptOptions holds flags for the encrypt command.
type EncryptOptions struct {
	Input    string
	Previous string
	Update   bool
	Delete   bool
}

// NewEncryptCommand creates the encrypt command.
func NewEncryptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncryptOptions{}

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encode a plaintext document as an encrypted record",
		Long: `Read a document {"id", "sequence", "content", "meta"} as JSON and print the
encrypted record for the store.

By default the record is an insert and the document's sequence must be 0.
--update produces the next version (sequence + 1) and --delete a tombstone.
--previous names the currently stored record, whose recipients keep access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "in", "i", "-", "document file (- for stdin)")
	cmd.Flags().StringVar(&opts.Previous, "previous", "", "currently stored record, for --update/--delete")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "encode an update")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "encode a tombstone")
	cmd.MarkFlagsMutuallyExclusive("update", "delete")

	return cmd
}

func runEncrypt(rootOpts *RootOptions, opts *EncryptOptions, cmd *cobra.Command) error {
	s, err := openSession(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	data, err := readInput(cmd, opts.Input)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	var doc encdoc.Document
	if err := encdoc.DecodeJSON(data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if opts.Previous != "" {
		prevData, err := readInput(cmd, opts.Previous)
		if err != nil {
			return fmt.Errorf("failed to read previous record: %w", err)
		}
		prev, err := encdoc.UnmarshalRecord(prevData, s.format)
		if err != nil {
			return fmt.Errorf("failed to parse previous record: %w", err)
		}
		if prev.ID != doc.ID {
			return fmt.Errorf("previous record %q does not match document %q", prev.ID, doc.ID)
		}
		if prev.Sequence != doc.Sequence {
			return fmt.Errorf("previous record is at sequence %d, document at %d", prev.Sequence, doc.Sequence)
		}
		doc.Recipients = prev.Envelope.Recipients
	}

	var rec *encdoc.EncryptedRecord
	switch {
	case opts.Delete:
		rec, err = s.codec.EncodeTombstone(&doc)
	case opts.Update:
		rec, err = s.codec.EncodeForUpdate(&doc)
	default:
		rec, err = s.codec.EncodeForInsert(&doc)
	}
	if err != nil {
		return err
	}

	out, err := encdoc.MarshalRecord(rec, s.format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, s.format)
}

// writeOutput writes wire bytes, adding a trailing newline for JSON.
func writeOutput(cmd *cobra.Command, out []byte, f encdoc.Format) error {
	w := cmd.OutOrStdout()
	if _, err := w.Write(out); err != nil {
		return err
	}
	if f == encdoc.FormatJSON {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}
