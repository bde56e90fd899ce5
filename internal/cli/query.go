package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/query"
	"github.com/roach88/relstore/internal/records"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Equals   []string // field=value
	Patterns []string // field=regexp
	Legacy   bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <type>",
		Short: "Find records matching attribute conditions",
		Long: `Find records whose attributes match every condition, with
relationships embedded.

--eq compares exactly; the value is read as JSON when possible, so
--eq age=30 matches the integer 30 and --eq name=ann the string "ann".
--match tests a regular expression against the attribute's string form.

With --legacy only the condition on the last field (in sorted order)
decides whether a record matches.

Examples:
  relstore --db ./relstore.db query user --eq name=ann
  relstore --db ./relstore.db query post --match 'title=^A' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Equals, "eq", nil, "equality condition field=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Patterns, "match", nil, "pattern condition field=regexp (repeatable)")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "let the last sorted field decide the match")

	return cmd
}

func runQuery(opts *QueryOptions, typeName string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	pred, err := buildPredicate(opts.Equals, opts.Patterns)
	if err != nil {
		_ = f.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid condition", err)
	}

	mode := query.ModeAll
	if opts.Legacy {
		mode = query.ModeLegacy
	}
	s, err := opts.open(f, records.WithQueryMode(mode))
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.store.FindQuery(cmd.Context(), typeName, pred)
	if err != nil {
		return f.Fail("query "+typeName, err)
	}
	f.VerboseLog("Matched %d record(s) in %s mode", len(recs), mode)
	return writeRecords(f, recs)
}

// buildPredicate parses --eq and --match conditions. A later condition on
// the same field replaces an earlier one.
func buildPredicate(equals, patterns []string) (query.Predicate, error) {
	pred := query.Predicate{}
	for _, expr := range equals {
		field, cond, err := query.ParseEqual(expr)
		if err != nil {
			return nil, err
		}
		pred[field] = cond
	}
	for _, expr := range patterns {
		field, cond, err := query.ParsePattern(expr)
		if err != nil {
			return nil, err
		}
		pred[field] = cond
	}
	return pred, nil
}
