package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/relstore/internal/ir"
)

// ParseEqual parses "field=value". The value is read as JSON when it is a
// valid attribute value (1, true, null, "quoted") and as a plain string
// otherwise, so name=alice and name="alice" are the same condition.
func ParseEqual(expr string) (string, Condition, error) {
	field, raw, err := splitExpr(expr)
	if err != nil {
		return "", nil, err
	}
	v, jsonErr := ir.UnmarshalIRValue([]byte(raw))
	if jsonErr != nil {
		v = ir.IRString(raw)
	}
	return field, Equal(v), nil
}

// ParsePattern parses "field=regexp".
func ParsePattern(expr string) (string, Condition, error) {
	field, raw, err := splitExpr(expr)
	if err != nil {
		return "", nil, err
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		return "", nil, fmt.Errorf("pattern for %q: %w", field, err)
	}
	return field, Pattern(re), nil
}

func splitExpr(expr string) (string, string, error) {
	field, raw, ok := strings.Cut(expr, "=")
	if !ok || field == "" {
		return "", "", fmt.Errorf("invalid condition %q: expected field=value", expr)
	}
	return field, raw, nil
}
