package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/records"
)

// NewIDOptions holds flags for the new-id command.
type NewIDOptions struct {
	*RootOptions
	Count int
	UUID  bool
}

// NewNewIDCommand creates the new-id command.
func NewNewIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewIDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new-id",
		Short: "Generate record ids",
		Long: `Generate ids the way create does for records without one: five
characters of base-32 randomness. Ids are not checked against stored
records. --uuid switches to time-ordered UUIDv7 ids.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewID(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of ids to generate")
	cmd.Flags().BoolVar(&opts.UUID, "uuid", false, "generate UUIDv7 ids")

	return cmd
}

func runNewID(opts *NewIDOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Count < 1 {
		_ = f.Error(ErrCodeBadInput, "--count must be at least 1", nil)
		return NewExitError(ExitCommandError, "--count must be at least 1")
	}

	var gen records.IDGenerator = records.ShortIDGenerator{}
	if opts.UUID {
		gen = records.UUIDv7Generator{}
	}
	s, err := opts.open(f, records.WithIDGenerator(gen))
	if err != nil {
		return err
	}
	defer s.Close()

	ids := make([]string, opts.Count)
	for i := range ids {
		ids[i] = s.store.GenerateID()
	}

	if f.Format == "json" {
		return f.Success(ids)
	}
	for _, id := range ids {
		_ = f.Success(id)
	}
	return nil
}
