package records

import "errors"

var (
	// ErrNotFound is returned by Find for ids absent from the namespace.
	ErrNotFound = errors.New("record not found")

	// ErrSerializationRejected wraps failures to turn a Record into an
	// attribute map.
	ErrSerializationRejected = errors.New("serialization rejected")

	// ErrMissingID is returned when a record carries no usable id.
	ErrMissingID = errors.New("record has no id")
)
