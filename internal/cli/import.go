package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/fixture"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Verify bool
}

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	Fixture  string            `json:"fixture"`
	Created  []fixture.Created `json:"created"`
	Verified bool              `json:"verified"`
	Failures []string          `json:"failures,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Create records from a YAML fixture",
		Long: `Create the records listed in a YAML fixture, in order. Records without
an id get a generated one.

With --verify the fixture's expectations are checked afterwards and the
command fails when any of them does not hold.

Examples:
  relstore --db ./relstore.db --schema ./schema import testdata/blog.yaml
  relstore --schema ./schema import testdata/blog.yaml --verify`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check the fixture's expectations after import")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	fx, err := fixture.Load(path)
	if err != nil {
		code := ErrCodeBadInput
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		_ = f.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load fixture", err)
	}

	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := fixture.Apply(ctx, s.store, fx)
	if err != nil {
		return f.Fail("import "+fx.Name, err)
	}
	f.VerboseLog("Created %d record(s) from %s", len(created), path)

	result := ImportResult{Fixture: fx.Name, Created: created}
	if opts.Verify {
		for _, verr := range fixture.Verify(ctx, s.store, fx) {
			result.Failures = append(result.Failures, verr.Error())
		}
		result.Verified = len(result.Failures) == 0
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		outputImportText(f, result)
	}

	if opts.Verify && !result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d expectation(s) failed", ErrCodeExpectFailed, len(result.Failures)))
	}
	return nil
}

func outputImportText(f *OutputFormatter, result ImportResult) {
	fmt.Fprintf(f.Writer, "imported %d record(s) from fixture %s\n", len(result.Created), result.Fixture)
	for _, c := range result.Created {
		f.VerboseLog("  %s %s", c.Type, c.ID)
	}
	for _, msg := range result.Failures {
		fmt.Fprintf(f.Writer, "FAIL %s\n", msg)
	}
	if result.Verified {
		fmt.Fprintln(f.Writer, "all expectations hold")
	}
}
