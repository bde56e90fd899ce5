package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relstore/internal/ir"
)

// DumpResult is the JSON payload of the dump command.
type DumpResult struct {
	BlobKey  string      `json:"blob_key"`
	Digest   string      `json:"digest"`
	Revision int64       `json:"revision,omitempty"` // write count, SQLite devices only
	Blob     ir.IRObject `json:"blob"`
}

// revisioner is implemented by devices that count writes per key.
type revisioner interface {
	Revision(ctx context.Context, key string) (int64, error)
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the persisted blob",
		Long: `Print the blob stored under --blob-key as canonical JSON, exactly as it
is persisted. With --format json the blob is wrapped with its key and
content digest.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, cmd)
		},
	}

	return cmd
}

func runDump(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.open(f)
	if err != nil {
		return err
	}
	defer s.Close()

	blob, err := s.store.Snapshot(cmd.Context())
	if err != nil {
		return f.Fail("dump", err)
	}
	digest, err := ir.BlobDigest(blob)
	if err != nil {
		return f.Fail("dump", err)
	}
	result := DumpResult{BlobKey: s.store.BlobKey(), Digest: digest, Blob: blob}
	if rv, ok := s.dev.(revisioner); ok {
		result.Revision, err = rv.Revision(cmd.Context(), result.BlobKey)
		if err != nil {
			return f.Fail("dump", err)
		}
	}
	f.VerboseLog("Blob %s digest %s revision %d", result.BlobKey, digest, result.Revision)

	if f.Format == "json" {
		return f.Success(result)
	}
	data, err := ir.MarshalCanonical(blob)
	if err != nil {
		return f.Fail("dump", err)
	}
	fmt.Fprintln(f.Writer, string(data))
	return nil
}
