package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Types  []ir.TypeSchema `json:"types"`
	Cycles []schema.Cycle  `json:"cycles"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show declared types, relationships and cycles",
		Long: `Load the CUE schema directory given by --schema and print every type
with its relationships, followed by the relationship cycles between types.

Cycles are informational: reads embed one hop only, so cyclic record
graphs still resolve.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	reg, err := opts.loadSchemas(f)
	if err != nil {
		return err
	}

	types := reg.All()
	result := SchemaResult{Types: types, Cycles: schema.AnalyzeCycles(types)}
	if f.Format == "json" {
		return f.Success(result)
	}

	if len(types) == 0 {
		fmt.Fprintln(f.Writer, "no types declared")
		return nil
	}
	for _, t := range types {
		fmt.Fprintf(f.Writer, "%s (namespace %s)\n", t.Name, t.NamespaceKey())
		for _, r := range t.Relationships {
			fmt.Fprintf(f.Writer, "  %s: %s %s\n", r.Name, r.Kind, r.Target)
		}
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(f.Writer, "cycle: %s\n", strings.Join(c.Path, " -> "))
	}
	return nil
}
