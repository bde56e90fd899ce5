package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DB        string // SQLite path; empty means an in-memory device
	SchemaDir string // CUE schema directory; empty means every type is relationship-free
	BlobKey   string
	LogLevel  string
	Verbose   bool
	Format    string // "json" | "text"

	level *slog.LevelVar
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the relstore CLI. When level
// is not nil, --log-level and --verbose adjust it before any command runs.
func NewRootCommand(level *slog.LevelVar) *cobra.Command {
	opts := &RootOptions{level: level}

	cmd := &cobra.Command{
		Use:   "relstore",
		Short: "relstore - typed records with one-hop relationships",
		Long: `A record store that keeps typed records in a single key/value blob.

Reads embed related records one hop deep under "_embedded", following the
relationships declared in CUE schema files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			lvl, err := ParseLogLevel(opts.LogLevel)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid log level", err)
			}
			if opts.Verbose {
				lvl = slog.LevelDebug
			}
			if opts.level != nil {
				opts.level.Set(lvl)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (default: in-memory)")
	cmd.PersistentFlags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE schema files")
	cmd.PersistentFlags().StringVar(&opts.BlobKey, "blob-key", "", "device key holding the record blob (default \"relstore\")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewGetManyCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewNewIDCommand(opts))

	return cmd
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
