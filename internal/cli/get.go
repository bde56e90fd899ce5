package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/ir"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Find one record with its relationships embedded",
		Long: `Find one record by id. Related records are embedded one hop deep
under "_embedded".

Examples:
  relstore --db ./relstore.db --schema ./schema get post 1
  relstore --db ./relstore.db get user u1 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, typeName, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.store.Find(cmd.Context(), typeName, id)
	if err != nil {
		return f.Fail(fmt.Sprintf("get %s %s", typeName, id), err)
	}
	return writeRecords(f, []ir.IRObject{rec})
}

// NewGetManyCommand creates the get-many command.
func NewGetManyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-many <type> <id>...",
		Short: "Find several records by id",
		Long: `Find several records by id, in argument order. Ids with no stored
record are skipped. Relationships are embedded as for get.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetMany(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runGetMany(opts *RootOptions, typeName string, ids []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.store.FindMany(cmd.Context(), typeName, ids)
	if err != nil {
		return f.Fail("get-many "+typeName, err)
	}
	f.VerboseLog("Found %d of %d record(s)", len(recs), len(ids))
	return writeRecords(f, recs)
}

// writeRecords prints records as a JSON array in the envelope, or one
// canonical JSON line per record in text mode.
func writeRecords(f *OutputFormatter, recs []ir.IRObject) error {
	if recs == nil {
		recs = []ir.IRObject{}
	}
	if f.Format == "json" {
		return f.Success(recs)
	}

	for _, rec := range recs {
		line, err := ir.MarshalCanonical(rec)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode record", err)
		}
		fmt.Fprintln(f.Writer, string(line))
	}
	return nil
}
