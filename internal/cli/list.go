package cli

import "github.com/spf13/cobra"

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List every record of a type",
		Long: `List every stored record of a type, ordered by id.

Relationships are not embedded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, typeName string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.store.FindAll(cmd.Context(), typeName)
	if err != nil {
		return f.Fail("list "+typeName, err)
	}
	f.VerboseLog("Found %d record(s)", len(recs))
	return writeRecords(f, recs)
}
