package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/relstore/internal/device"
	"github.com/roach88/relstore/internal/ir"
)

// DefaultBlobKey is the device key the blob is stored under unless
// WithBlobKey says otherwise.
const DefaultBlobKey = "relstore"

// ErrCorrupt is returned when a stored blob or namespace cannot be decoded.
var ErrCorrupt = errors.New("corrupt blob")

// Store loads and persists namespaces in a device-wide blob.
type Store struct {
	dev    device.Device
	key    string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBlobKey sets the device key of the blob.
func WithBlobKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store persisting through dev.
func New(dev device.Device, opts ...Option) *Store {
	s := &Store{
		dev:    dev,
		key:    DefaultBlobKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BlobKey returns the device key of the blob.
func (s *Store) BlobKey() string {
	return s.key
}

// Load returns the namespace stored under typeKey. A missing blob or a
// missing type key yields an empty namespace. The returned records are
// freshly decoded and owned by the caller.
func (s *Store) Load(ctx context.Context, typeKey string) (ir.Namespace, error) {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("load namespace %q: %w", typeKey, err)
	}

	v, ok := blob[typeKey]
	if !ok {
		return ir.NewNamespace(), nil
	}
	ns, err := ir.NamespaceFromValue(v)
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("load namespace %q: %w: %w", typeKey, ErrCorrupt, err)
	}
	return ns, nil
}

// Persist replaces the namespace under typeKey and writes the whole blob
// back with one device write. Embedded payloads are stripped.
func (s *Store) Persist(ctx context.Context, typeKey string, ns ir.Namespace) error {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return fmt.Errorf("persist namespace %q: %w", typeKey, err)
	}
	blob[typeKey] = ns.Value()

	data, err := ir.MarshalCanonical(blob)
	if err != nil {
		return fmt.Errorf("persist namespace %q: %w", typeKey, err)
	}
	if err := s.dev.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist namespace %q: %w", typeKey, err)
	}

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		digest, _ := ir.BlobDigest(blob)
		s.logger.DebugContext(ctx, "namespace persisted",
			"blob_key", s.key,
			"type", typeKey,
			"records", len(ns.Records),
			"bytes", len(data),
			"digest", digest)
	}
	return nil
}

// Snapshot returns the decoded blob. An absent blob is an empty object.
func (s *Store) Snapshot(ctx context.Context) (ir.IRObject, error) {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return blob, nil
}

// readBlob fetches and decodes the blob. Absent or empty values decode to
// an empty object; anything else that is not a JSON object is corrupt.
func (s *Store) readBlob(ctx context.Context) (ir.IRObject, error) {
	data, ok, err := s.dev.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return ir.IRObject{}, nil
	}
	blob, err := ir.UnmarshalIRObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrCorrupt, s.key, err)
	}
	return blob, nil
}
