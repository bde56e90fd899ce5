package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/relstore/internal/ir"
)

// ErrUnknownType is returned for record types a provider has no schema for.
var ErrUnknownType = errors.New("unknown record type")

// Provider supplies per-type relationship metadata. Implementations must be
// safe for concurrent use.
type Provider interface {
	Schema(typeName string) (ir.TypeSchema, error)
}

// Registry is an immutable, in-memory Provider.
type Registry struct {
	types map[string]ir.TypeSchema
	order []string // declaration order
}

var _ Provider = (*Registry)(nil)

// NewRegistry builds a Registry from type schemas. Later duplicates replace
// earlier ones; use Validate to reject them instead.
func NewRegistry(types ...ir.TypeSchema) *Registry {
	r := &Registry{types: make(map[string]ir.TypeSchema, len(types))}
	for _, t := range types {
		if _, dup := r.types[t.Name]; !dup {
			r.order = append(r.order, t.Name)
		}
		t.Relationships = slices.Clone(t.Relationships)
		r.types[t.Name] = t
	}
	return r
}

// Schema implements Provider.
func (r *Registry) Schema(typeName string) (ir.TypeSchema, error) {
	t, ok := r.types[typeName]
	if !ok {
		return ir.TypeSchema{}, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	t.Relationships = slices.Clone(t.Relationships)
	return t, nil
}

// Types returns type names in declaration order.
func (r *Registry) Types() []string {
	return slices.Clone(r.order)
}

// All returns every type schema in declaration order.
func (r *Registry) All() []ir.TypeSchema {
	out := make([]ir.TypeSchema, 0, len(r.order))
	for _, name := range r.order {
		t, _ := r.Schema(name)
		out = append(out, t)
	}
	return out
}

// permissive treats unknown types as types without relationships.
type permissive struct {
	p Provider
}

// Permissive wraps p so that unknown types resolve to an empty schema named
// after the type. Used when no schema files are configured.
func Permissive(p Provider) Provider {
	return permissive{p: p}
}

func (w permissive) Schema(typeName string) (ir.TypeSchema, error) {
	t, err := w.p.Schema(typeName)
	if errors.Is(err, ErrUnknownType) {
		return ir.TypeSchema{Name: typeName}, nil
	}
	return t, err
}
