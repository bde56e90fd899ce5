package schema

import (
	"fmt"

	"github.com/roach88/relstore/internal/ir"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of type schemas as a whole. Returns all errors found
// (does not fail-fast):
//   - type names and namespace keys are unique
//   - relationship kinds are valid and targets are declared types
//   - relationships do not shadow reserved attributes (id, _embedded)
//   - relationship names are unique within a type
func Validate(types []ir.TypeSchema) []ValidationError {
	var errs []ValidationError

	names := make(map[string]bool, len(types))
	namespaces := make(map[string]string, len(types))
	for _, t := range types {
		if names[t.Name] {
			errs = append(errs, ValidationError{Field: "type." + t.Name, Message: "duplicate type", Code: ErrCodeDuplicate})
		}
		names[t.Name] = true

		key := t.NamespaceKey()
		if other, ok := namespaces[key]; ok && other != t.Name {
			errs = append(errs, ValidationError{
				Field:   "type." + t.Name + ".namespace",
				Message: fmt.Sprintf("namespace %q already used by type %q", key, other),
				Code:    ErrCodeDuplicate,
			})
		}
		namespaces[key] = t.Name
	}

	for _, t := range types {
		seen := make(map[string]bool, len(t.Relationships))
		for _, r := range t.Relationships {
			field := fmt.Sprintf("type.%s.relationships.%s", t.Name, r.Name)
			switch {
			case r.Name == ir.IDField || r.Name == ir.EmbeddedKey:
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%q is a reserved attribute", r.Name), Code: ErrCodeReservedName})
			case seen[r.Name]:
				errs = append(errs, ValidationError{Field: field, Message: "duplicate relationship", Code: ErrCodeDuplicate})
			}
			seen[r.Name] = true

			if !r.Kind.Valid() {
				errs = append(errs, ValidationError{Field: field + ".kind", Message: fmt.Sprintf("invalid kind %v", r.Kind), Code: ErrCodeBadKind})
			}
			if r.Target == "" {
				errs = append(errs, ValidationError{Field: field + ".target", Message: "target is required", Code: ErrCodeNoTarget})
			} else if !names[r.Target] {
				errs = append(errs, ValidationError{Field: field + ".target", Message: fmt.Sprintf("unknown target type %q", r.Target), Code: ErrCodeNoTarget})
			}
		}
	}

	return errs
}
