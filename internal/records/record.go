package records

import (
	"fmt"

	"github.com/roach88/relstore/internal/ir"
)

// SerializeOptions controls Record serialization.
type SerializeOptions struct {
	// IncludeID keeps the id field in the attribute map.
	IncludeID bool
}

// Record is anything the store can persist. ID may return nil for records
// that have not been assigned one yet.
type Record interface {
	ID() ir.IRValue
	Serialize(opts SerializeOptions) (ir.IRObject, error)
}

// Attributes is a Record backed by a plain attribute map.
type Attributes ir.IRObject

var _ Record = Attributes(nil)

// ID returns the id attribute, or nil.
func (a Attributes) ID() ir.IRValue {
	return a[ir.IDField]
}

// Serialize returns a deep copy of the attributes without _embedded. It
// fails on nil values and on ids that are neither a non-empty string nor
// an int.
func (a Attributes) Serialize(opts SerializeOptions) (ir.IRObject, error) {
	out := make(ir.IRObject, len(a))
	for k, v := range a {
		if k == ir.EmbeddedKey {
			continue
		}
		if err := validateValue(v); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		if k == ir.IDField {
			if _, ok := ir.IDKey(v); !ok {
				return nil, fmt.Errorf("attribute %q: id must be a non-empty string or an int, got %T", k, v)
			}
			if !opts.IncludeID {
				continue
			}
		}
		out[k] = ir.Clone(v)
	}
	return out, nil
}

// WithID returns a copy of a with its id set.
func (a Attributes) WithID(id ir.IRValue) Attributes {
	out := Attributes(ir.IRObject(a).Clone())
	if out == nil {
		out = Attributes{}
	}
	out[ir.IDField] = id
	return out
}

func validateValue(v ir.IRValue) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil value")
	case ir.IRArray:
		for i, elem := range val {
			if err := validateValue(elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case ir.IRObject:
		for k, elem := range val {
			if err := validateValue(elem); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
	}
	return nil
}
