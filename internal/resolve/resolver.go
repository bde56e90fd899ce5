package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/schema"
)

// DefaultConcurrency bounds how many records ResolveMany expands at once.
const DefaultConcurrency = 8

// ErrUnresolved marks a reference whose target record does not exist.
// Fetchers wrap it for misses; the Resolver treats it as non-fatal.
var ErrUnresolved = errors.New("relationship unresolved")

// Fetcher loads related records. depth is the resolution depth the fetched
// records themselves are expanded with; 0 means return them as stored.
type Fetcher interface {
	FetchOne(ctx context.Context, typeName, id string, depth int) (ir.IRObject, error)
	FetchMany(ctx context.Context, typeName string, ids []string, depth int) ([]ir.IRObject, error)
}

// Resolver embeds related records one relationship at a time.
type Resolver struct {
	schemas schema.Provider
	fetcher Fetcher
	logger  *slog.Logger
	limit   int
	calls   atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds the number of records ResolveMany works on at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger used for unresolved references.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver reading relationships from schemas and loading
// related records through fetcher.
func New(schemas schema.Provider, fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		schemas: schemas,
		fetcher: fetcher,
		logger:  slog.Default(),
		limit:   DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Calls returns the number of resolution passes started so far.
func (r *Resolver) Calls() int64 {
	return r.calls.Load()
}

// fetched is the outcome of one relationship fetch. ok is false when the
// relationship was skipped or its target did not resolve.
type fetched struct {
	value ir.IRValue
	ok    bool
}

// ResolveOne returns a copy of record with every declared relationship
// embedded. With depth <= 0 the record is returned unchanged.
//
// All relationships are fetched concurrently. Embedding happens after every
// fetch has settled, in declaration order. A missing target leaves its field
// untouched; any other fetch error fails the whole resolution.
func (r *Resolver) ResolveOne(ctx context.Context, typeName string, record ir.IRObject, depth int) (ir.IRObject, error) {
	if depth <= 0 {
		return record, nil
	}
	r.calls.Add(1)

	ts, err := r.schemas.Schema(typeName)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", typeName, err)
	}

	out := record.Clone()
	results := make([]fetched, len(ts.Relationships))

	g, gctx := errgroup.WithContext(ctx)
	for i, rel := range ts.Relationships {
		refs, ok := references(rel, out[rel.Name])
		if !ok {
			continue
		}
		g.Go(func() error {
			v, err := r.fetch(gctx, rel, refs, depth-1)
			switch {
			case errors.Is(err, ErrUnresolved):
				r.logger.DebugContext(gctx, "relationship unresolved",
					"type", typeName,
					"relationship", rel.Name,
					"target", rel.Target,
					"refs", refs,
					"error", err)
				return nil
			case err != nil:
				return fmt.Errorf("resolve %s.%s: %w", typeName, rel.Name, err)
			}
			results[i] = fetched{value: v, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, rel := range ts.Relationships {
		if results[i].ok {
			Embed(out, rel.Name, results[i].value)
		}
	}
	return out, nil
}

// ResolveMany resolves every record with ResolveOne. Records are processed
// concurrently up to the configured limit; the output keeps input order.
func (r *Resolver) ResolveMany(ctx context.Context, typeName string, records []ir.IRObject, depth int) ([]ir.IRObject, error) {
	out := make([]ir.IRObject, len(records))
	if depth <= 0 {
		copy(out, records)
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, rec := range records {
		g.Go(func() error {
			resolved, err := r.ResolveOne(gctx, typeName, rec, depth)
			if err != nil {
				return err
			}
			out[i] = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, rel ir.Relationship, refs []string, depth int) (ir.IRValue, error) {
	switch rel.Kind {
	case ir.BelongsTo, ir.HasOne:
		return r.fetcher.FetchOne(ctx, rel.Target, refs[0], depth)
	case ir.HasMany:
		recs, err := r.fetcher.FetchMany(ctx, rel.Target, refs, depth)
		if err != nil {
			return nil, err
		}
		arr := make(ir.IRArray, len(recs))
		for i, rec := range recs {
			arr[i] = rec
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("relationship %q: invalid kind %v", rel.Name, rel.Kind)
	}
}

// references extracts the id keys a relationship field points at. ok is
// false when the field is absent, falsy or holds no usable id.
func references(rel ir.Relationship, v ir.IRValue) ([]string, bool) {
	if !ir.Truthy(v) {
		return nil, false
	}

	var refs []string
	switch val := v.(type) {
	case ir.IRArray:
		for _, elem := range val {
			if key, ok := refKey(elem); ok {
				refs = append(refs, key)
			}
		}
	default:
		if key, ok := refKey(val); ok {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil, false
	}
	if !rel.Kind.IsCollection() {
		refs = refs[:1]
	}
	return refs, true
}

// refKey returns the id key of a reference: a bare id or an object
// carrying one.
func refKey(v ir.IRValue) (string, bool) {
	if !ir.Truthy(v) {
		return "", false
	}
	if obj, ok := v.(ir.IRObject); ok {
		_, key, ok := obj.ID()
		return key, ok
	}
	return ir.IDKey(v)
}
