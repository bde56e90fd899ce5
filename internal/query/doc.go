// Package query filters namespace records against flat predicates.
//
// A Predicate maps top-level field names to Conditions. A condition is
// either an exact match (Equal) or a regular expression tested against the
// field's string form (Pattern). Predicate and Condition are sealed: only
// this package implements Condition, so evaluation can switch exhaustively.
//
// Two evaluation modes exist:
//
//	ModeAll     every field must match (conjunction)
//	ModeLegacy  only the last field, in sorted field order, decides
//
// ModeLegacy reproduces stores that overwrote a single keep flag per field
// instead of conjoining. New callers should use ModeAll.
package query
