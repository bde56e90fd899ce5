package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/records"
)

// WriteOptions holds flags for the create and update commands.
type WriteOptions struct {
	*RootOptions
	Data string // JSON object of attributes
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a record",
		Long: `Create a record from a JSON object of attributes. When the object has
no "id", one is generated. A record with the same id is replaced.

Examples:
  relstore --db ./relstore.db create comment --data '{"id":1,"text":"x"}'
  relstore --db ./relstore.db create user --data '{"name":"ann"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "record attributes as a JSON object (required)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runCreate(opts *WriteOptions, typeName string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	attrs, err := parseData(f, opts.Data)
	if err != nil {
		return err
	}

	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	if attrs.ID() == nil {
		attrs = attrs.WithID(ir.IRString(s.store.GenerateID()))
		f.VerboseLog("Generated id %s", attrs.ID())
	}
	stored, err := s.store.CreateRecord(cmd.Context(), typeName, attrs)
	if err != nil {
		return f.Fail("create "+typeName, err)
	}
	return writeRecords(f, []ir.IRObject{stored})
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <type>",
		Short: "Replace a record's attributes",
		Long: `Replace the attributes of the record whose id is given in --data.
A record that does not exist yet is created.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "record attributes as a JSON object, including id (required)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runUpdate(opts *WriteOptions, typeName string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	attrs, err := parseData(f, opts.Data)
	if err != nil {
		return err
	}

	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	stored, err := s.store.UpdateRecord(cmd.Context(), typeName, attrs)
	if err != nil {
		return f.Fail("update "+typeName, err)
	}
	return writeRecords(f, []ir.IRObject{stored})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record",
		Long: `Delete a record by id. Deleting a record that does not exist
succeeds and changes nothing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func runDelete(opts *RootOptions, typeName, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	rec := records.Attributes{ir.IDField: ir.IRString(id)}
	if err := s.store.DeleteRecord(cmd.Context(), typeName, rec); err != nil {
		return f.Fail(fmt.Sprintf("delete %s %s", typeName, id), err)
	}

	if f.Format == "json" {
		return f.Success(DeleteResult{Type: typeName, ID: id})
	}
	fmt.Fprintf(f.Writer, "deleted %s %s\n", typeName, id)
	return nil
}

// parseData decodes --data into attributes.
func parseData(f *OutputFormatter, data string) (records.Attributes, error) {
	obj, err := ir.UnmarshalIRObject([]byte(data))
	if err != nil {
		_ = f.Error(ErrCodeBadInput, "invalid --data: "+err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid --data", err)
	}
	return records.Attributes(obj), nil
}
