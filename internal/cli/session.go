package cli

import (
	"errors"
	"log/slog"

	"github.com/roach88/relstore/internal/device"
	"github.com/roach88/relstore/internal/records"
	"github.com/roach88/relstore/internal/schema"
)

// session is an open device with a store over it.
type session struct {
	dev   device.Device
	store *records.Store
}

func (s *session) Close() error {
	return s.dev.Close()
}

// loadSchemas reads --schema, or returns an empty registry when unset.
func (o *RootOptions) loadSchemas(f *OutputFormatter) (*schema.Registry, error) {
	if o.SchemaDir == "" {
		return schema.NewRegistry(), nil
	}

	reg, errs := schema.LoadDir(o.SchemaDir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		code := ErrCodeGeneric
		var loadErr *schema.LoadError
		if errors.As(errs[0], &loadErr) {
			code = loadErr.Code
		}
		_ = f.Error(code, errs[0].Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load schema", errors.Join(errs...))
	}
	f.VerboseLog("Loaded %d type(s) from %s", len(reg.Types()), o.SchemaDir)
	return reg, nil
}

// open loads the schemas and opens the device named by the global flags.
// Without --schema every type is accepted and has no relationships.
func (o *RootOptions) open(f *OutputFormatter, extra ...records.Option) (*session, error) {
	reg, err := o.loadSchemas(f)
	if err != nil {
		return nil, err
	}
	var provider schema.Provider = reg
	if o.SchemaDir == "" {
		provider = schema.Permissive(reg)
	}

	var dev device.Device
	if o.DB != "" {
		sq, err := device.OpenSQLite(o.DB)
		if err != nil {
			_ = f.Error(ErrCodeGeneric, "failed to open database: "+err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		dev = sq
	} else {
		dev = device.NewMemory()
	}

	opts := []records.Option{records.WithLogger(slog.Default())}
	if o.BlobKey != "" {
		opts = append(opts, records.WithBlobKey(o.BlobKey))
	}
	opts = append(opts, extra...)
	return &session{dev: dev, store: records.New(dev, provider, opts...)}, nil
}
