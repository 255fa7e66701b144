package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ai8future/encdoc"
)

// configEnv names the environment variable consulted when --config is not set.
const configEnv = "ENCDOC_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "cbor"; overrides the config file
	Verbose    bool
}

// NewRootCommand creates the root command for the encdoc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "encdoc",
		Short: "Encrypt, decrypt and query blind-indexed documents",
		Long: `encdoc encodes documents for an untrusted store: content and meta are
sealed in an envelope, and configured attributes are blinded so the store can
answer exact-match queries without seeing names or values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format == "" {
				return nil
			}
			if _, err := encdoc.ParseFormat(opts.Format); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $"+configEnv+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "wire format (json|cbor)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewEncryptCommand(opts))
	cmd.AddCommand(NewDecryptCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// newLogger builds the console logger used by every command.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
}

// session is the state shared by commands that need keys.
type session struct {
	config  *Config
	keyring *encdoc.Keyring
	codec   *encdoc.Codec
	format  encdoc.Format
	log     zerolog.Logger
}

// openSession loads the config, derives keys and registers indexes.
// The caller must call close.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return nil, fmt.Errorf("no config: use --config or $%s", configEnv)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	format := cfg.Format
	if opts.Format != "" {
		format = opts.Format
	}
	f, err := encdoc.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	provider, err := cfg.KeyProvider()
	if err != nil {
		return nil, err
	}
	defer provider.Close()
	kr, err := encdoc.NewKeyring(provider)
	if err != nil {
		return nil, err
	}
	codec, err := encdoc.New(encdoc.WithKeyring(kr), encdoc.WithLogger(log))
	if err != nil {
		kr.Close()
		return nil, err
	}
	if err := cfg.Register(codec); err != nil {
		kr.Close()
		return nil, err
	}

	log.Debug().
		Str("config", path).
		Str("default_key_id", kr.DefaultKeyID()).
		Int("indexes", len(cfg.Indexes)).
		Msg("session ready")

	return &session{config: cfg, keyring: kr, codec: codec, format: f, log: log}, nil
}

func (s *session) close() {
	s.keyring.Close()
}

// readInput reads the named file, or stdin when path is "" or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
