package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relstore/internal/ir"
)

// CompileType parses a CUE value into a TypeSchema. The type name is the
// value's last path selector, so v is expected to be the struct under
// type.<name>:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`type: post: relationships: comments: {kind: "hasMany", target: "comment"}`)
//	ts, err := CompileType(v.LookupPath(cue.ParsePath("type.post")))
func CompileType(v cue.Value) (*ir.TypeSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ts := &ir.TypeSchema{}
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return nil, &CompileError{Field: "type", Message: "type name is required", Pos: v.Pos()}
	}
	ts.Name = labels[len(labels)-1].Unquoted()

	if nsVal := v.LookupPath(cue.ParsePath("namespace")); nsVal.Exists() {
		ns, err := nsVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if ns == "" {
			return nil, &CompileError{Field: "namespace", Message: "namespace must not be empty", Pos: nsVal.Pos()}
		}
		ts.Namespace = ns
	}

	rels, err := parseRelationships(v)
	if err != nil {
		return nil, err
	}
	ts.Relationships = rels

	return ts, nil
}

// parseRelationships reads the optional relationships struct in declaration order.
func parseRelationships(v cue.Value) ([]ir.Relationship, error) {
	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if !relsVal.Exists() {
		return []ir.Relationship{}, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	rels := []ir.Relationship{}
	for iter.Next() {
		rel, err := parseRelationship(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func parseRelationship(name string, v cue.Value) (ir.Relationship, error) {
	rel := ir.Relationship{Name: name}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return rel, &CompileError{Field: "kind", Message: fmt.Sprintf("relationship %q: kind is required", name), Pos: v.Pos()}
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return rel, formatCUEError(err)
	}
	kind, err := ir.ParseRelationKind(kindStr)
	if err != nil {
		return rel, &CompileError{Field: "kind", Message: fmt.Sprintf("relationship %q: %v", name, err), Pos: kindVal.Pos()}
	}
	rel.Kind = kind

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return rel, &CompileError{Field: "target", Message: fmt.Sprintf("relationship %q: target is required", name), Pos: v.Pos()}
	}
	target, err := targetVal.String()
	if err != nil {
		return rel, formatCUEError(err)
	}
	rel.Target = target

	return rel, nil
}

// CompileError is a schema compilation error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
