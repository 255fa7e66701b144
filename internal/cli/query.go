package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai8future/encdoc"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Equals []string
	Has    []string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Blind a filter into a query the store can evaluate",
		Long: `Build a blinded query from --equals name=value pairs (all pairs form one
object, matched by the index over exactly those names) or from --has names.
Values are parsed as JSON when possible, otherwise taken as strings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Equals, "equals", nil, "name=value pair (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Has, "has", nil, "attribute name (repeatable)")

	return cmd
}

func runQuery(rootOpts *RootOptions, opts *QueryOptions, cmd *cobra.Command) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	s, err := openSession(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	q, err := s.codec.BuildQuery(filter)
	if err != nil {
		return err
	}
	if q.MatchesNothing() {
		s.log.Warn().Msg("no registered index covers the filter; the query matches nothing")
	}

	out, err := encdoc.MarshalQuery(q, s.format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, s.format)
}

// filter converts the flags into an encdoc.Filter.
func (o *QueryOptions) filter() (encdoc.Filter, error) {
	var f encdoc.Filter
	if len(o.Equals) > 0 {
		obj := make(map[string]any, len(o.Equals))
		for _, pair := range o.Equals {
			name, raw, ok := strings.Cut(pair, "=")
			if !ok || name == "" {
				return f, fmt.Errorf("invalid --equals %q: want name=value", pair)
			}
			obj[name] = parseValue(raw)
		}
		f.Equals = []map[string]any{obj}
	}
	f.Has = o.Has
	return f, nil
}

// parseValue decodes raw as JSON, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := encdoc.DecodeJSON([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
