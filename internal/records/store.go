package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/relstore/internal/device"
	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/namespace"
	"github.com/roach88/relstore/internal/query"
	"github.com/roach88/relstore/internal/resolve"
	"github.com/roach88/relstore/internal/schema"
)

// DefaultDepth is the resolution depth of reads: one hop.
const DefaultDepth = 1

// Store is the record store. It is safe for concurrent use.
type Store struct {
	schemas    schema.Provider
	namespaces *namespace.Store
	resolver   *resolve.Resolver
	logger     *slog.Logger

	ids         IDGenerator
	mode        query.Mode
	depth       int
	blobKey     string
	concurrency int

	// mu serializes mutations from load to persist.
	mu sync.Mutex
}

var _ resolve.Fetcher = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBlobKey sets the device key all namespaces are stored under.
func WithBlobKey(key string) Option {
	return func(s *Store) {
		s.blobKey = key
	}
}

// WithLogger sets the logger for the store and its components.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator sets the generator behind GenerateID.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithQueryMode sets how FindQuery combines predicate fields.
func WithQueryMode(m query.Mode) Option {
	return func(s *Store) {
		s.mode = m
	}
}

// WithConcurrency bounds how many records a batch read resolves at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		s.concurrency = n
	}
}

// WithDepth sets the resolution depth of reads. 0 disables embedding.
func WithDepth(depth int) Option {
	return func(s *Store) {
		if depth >= 0 {
			s.depth = depth
		}
	}
}

// New returns a Store persisting through dev with relationships from
// schemas. The caller keeps ownership of dev.
func New(dev device.Device, schemas schema.Provider, opts ...Option) *Store {
	s := &Store{
		schemas:     schemas,
		logger:      slog.Default(),
		ids:         ShortIDGenerator{},
		mode:        query.ModeAll,
		depth:       DefaultDepth,
		blobKey:     namespace.DefaultBlobKey,
		concurrency: resolve.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.namespaces = namespace.New(dev,
		namespace.WithBlobKey(s.blobKey),
		namespace.WithLogger(s.logger),
	)
	s.resolver = resolve.New(schemas, s,
		resolve.WithConcurrency(s.concurrency),
		resolve.WithLogger(s.logger),
	)
	return s
}

// BlobKey returns the device key of the blob.
func (s *Store) BlobKey() string {
	return s.namespaces.BlobKey()
}

// Schemas returns the store's schema provider.
func (s *Store) Schemas() schema.Provider {
	return s.schemas
}

// ResolveCalls returns how many resolution passes the store has started.
func (s *Store) ResolveCalls() int64 {
	return s.resolver.Calls()
}

// Snapshot returns the decoded blob.
func (s *Store) Snapshot(ctx context.Context) (ir.IRObject, error) {
	return s.namespaces.Snapshot(ctx)
}

// Find returns the record of typeName with the given id key, with its
// relationships embedded. Returns ErrNotFound if it does not exist.
func (s *Store) Find(ctx context.Context, typeName, id string) (ir.IRObject, error) {
	return s.find(ctx, typeName, id, s.depth)
}

// FindMany returns copies of the records with the given id keys, in
// request order, with relationships embedded. Ids that do not exist are
// omitted. No resolution happens when nothing was found.
func (s *Store) FindMany(ctx context.Context, typeName string, ids []string) ([]ir.IRObject, error) {
	return s.findMany(ctx, typeName, ids, s.depth)
}

// FindAll returns copies of every record of typeName in id order. It
// never embeds relationships.
func (s *Store) FindAll(ctx context.Context, typeName string) ([]ir.IRObject, error) {
	ns, err := s.load(ctx, typeName)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRObject, 0, len(ns.Records))
	for _, k := range ns.Keys() {
		out = append(out, ns.Records[k].Clone())
	}
	return out, nil
}

// FindQuery returns the records matching pred, in id order, with
// relationships embedded.
func (s *Store) FindQuery(ctx context.Context, typeName string, pred query.Predicate) ([]ir.IRObject, error) {
	ns, err := s.load(ctx, typeName)
	if err != nil {
		return nil, err
	}
	matched := query.Match(ns.Records, pred, s.mode)
	s.logger.DebugContext(ctx, "query matched",
		"type", typeName,
		"mode", s.mode.String(),
		"fields", pred.Fields(),
		"matched", len(matched))
	if len(matched) == 0 {
		return matched, nil
	}
	return s.resolver.ResolveMany(ctx, typeName, matched, s.depth)
}

// CreateRecord serializes rec with its id and stores it, replacing any
// record with the same id. Returns the stored attributes.
func (s *Store) CreateRecord(ctx context.Context, typeName string, rec Record) (ir.IRObject, error) {
	attrs, err := serialize(rec)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", typeName, err)
	}
	_, key, ok := attrs.ID()
	if !ok {
		return nil, fmt.Errorf("create %s: %w", typeName, ErrMissingID)
	}

	if err := s.mutate(ctx, typeName, func(ns ir.Namespace) {
		ns.Records[key] = attrs
	}); err != nil {
		return nil, fmt.Errorf("create %s %q: %w", typeName, key, err)
	}

	s.logger.InfoContext(ctx, "record created", "type", typeName, "id", key)
	return attrs.Clone(), nil
}

// UpdateRecord stores rec under rec.ID(). A record that does not exist yet
// is created. The stored id is always rec.ID(), whatever the serializer
// emitted. Returns the stored attributes.
func (s *Store) UpdateRecord(ctx context.Context, typeName string, rec Record) (ir.IRObject, error) {
	key, ok := ir.IDKey(rec.ID())
	if !ok {
		return nil, fmt.Errorf("update %s: %w", typeName, ErrMissingID)
	}
	attrs, err := serialize(rec)
	if err != nil {
		return nil, fmt.Errorf("update %s %q: %w", typeName, key, err)
	}
	attrs[ir.IDField] = rec.ID()

	existed := false
	if err := s.mutate(ctx, typeName, func(ns ir.Namespace) {
		_, existed = ns.Records[key]
		ns.Records[key] = attrs
	}); err != nil {
		return nil, fmt.Errorf("update %s %q: %w", typeName, key, err)
	}

	s.logger.InfoContext(ctx, "record updated", "type", typeName, "id", key, "existed", existed)
	return attrs.Clone(), nil
}

// DeleteRecord removes rec.ID() from the namespace. Deleting a record that
// does not exist is not an error.
func (s *Store) DeleteRecord(ctx context.Context, typeName string, rec Record) error {
	key, ok := ir.IDKey(rec.ID())
	if !ok {
		return fmt.Errorf("delete %s: %w", typeName, ErrMissingID)
	}

	existed := false
	if err := s.mutate(ctx, typeName, func(ns ir.Namespace) {
		_, existed = ns.Records[key]
		delete(ns.Records, key)
	}); err != nil {
		return fmt.Errorf("delete %s %q: %w", typeName, key, err)
	}

	s.logger.InfoContext(ctx, "record deleted", "type", typeName, "id", key, "existed", existed)
	return nil
}

// GenerateID returns a new id from the configured generator. It is not
// checked against stored records.
func (s *Store) GenerateID() string {
	return s.ids.Generate()
}

// FetchOne implements resolve.Fetcher.
func (s *Store) FetchOne(ctx context.Context, typeName, id string, depth int) (ir.IRObject, error) {
	rec, err := s.find(ctx, typeName, id, depth)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", resolve.ErrUnresolved, err)
	}
	return rec, err
}

// FetchMany implements resolve.Fetcher.
func (s *Store) FetchMany(ctx context.Context, typeName string, ids []string, depth int) ([]ir.IRObject, error) {
	return s.findMany(ctx, typeName, ids, depth)
}

func (s *Store) find(ctx context.Context, typeName, id string, depth int) (ir.IRObject, error) {
	ns, err := s.load(ctx, typeName)
	if err != nil {
		return nil, err
	}
	rec, ok := ns.Records[id]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", typeName, id, ErrNotFound)
	}
	return s.resolver.ResolveOne(ctx, typeName, rec, depth)
}

func (s *Store) findMany(ctx context.Context, typeName string, ids []string, depth int) ([]ir.IRObject, error) {
	ns, err := s.load(ctx, typeName)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRObject, 0, len(ids))
	for _, id := range ids {
		if rec, ok := ns.Records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	if len(out) == 0 {
		return out, nil
	}
	return s.resolver.ResolveMany(ctx, typeName, out, depth)
}

// load reads the namespace of typeName.
func (s *Store) load(ctx context.Context, typeName string) (ir.Namespace, error) {
	key, err := s.namespaceKey(typeName)
	if err != nil {
		return ir.Namespace{}, err
	}
	return s.namespaces.Load(ctx, key)
}

// mutate applies fn to the namespace of typeName and persists it, holding
// the store lock throughout.
func (s *Store) mutate(ctx context.Context, typeName string, fn func(ir.Namespace)) error {
	key, err := s.namespaceKey(typeName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.namespaces.Load(ctx, key)
	if err != nil {
		return err
	}
	fn(ns)
	return s.namespaces.Persist(ctx, key, ns)
}

func (s *Store) namespaceKey(typeName string) (string, error) {
	ts, err := s.schemas.Schema(typeName)
	if err != nil {
		return "", err
	}
	return ts.NamespaceKey(), nil
}

func serialize(rec Record) (ir.IRObject, error) {
	attrs, err := rec.Serialize(SerializeOptions{IncludeID: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationRejected, err)
	}
	if attrs == nil {
		return nil, fmt.Errorf("%w: serializer returned no attributes", ErrSerializationRejected)
	}
	return ir.StripEmbedded(attrs), nil
}
