package ir

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Reserved attribute and blob field names.
const (
	// IDField holds a record's id inside its attribute map.
	IDField = "id"

	// EmbeddedKey holds resolved related records. It is added on read and
	// stripped before every persist.
	EmbeddedKey = "_embedded"

	// RecordsField is the key of the id -> attribute map inside a namespace.
	RecordsField = "records"
)

// RelationKind is the closed set of relationship kinds.
type RelationKind int

const (
	// BelongsTo references a single owner record by id.
	BelongsTo RelationKind = iota + 1
	// HasOne references a single dependent record by id.
	HasOne
	// HasMany references a list of records by id.
	HasMany
)

var relationKindNames = map[RelationKind]string{
	BelongsTo: "belongsTo",
	HasOne:    "hasOne",
	HasMany:   "hasMany",
}

// String returns the schema spelling of the kind ("belongsTo", ...).
func (k RelationKind) String() string {
	if name, ok := relationKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RelationKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k RelationKind) Valid() bool {
	_, ok := relationKindNames[k]
	return ok
}

// IsCollection reports whether the relationship holds a list of ids.
func (k RelationKind) IsCollection() bool {
	return k == HasMany
}

// ParseRelationKind parses the schema spelling of a kind.
func ParseRelationKind(s string) (RelationKind, error) {
	for k, name := range relationKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship kind %q: must be belongsTo, hasOne or hasMany", s)
}

// MarshalJSON encodes the kind by name.
func (k RelationKind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid relationship kind %d", int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its name.
func (k *RelationKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRelationKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Relationship describes one reference field of a record type.
type Relationship struct {
	Name   string       `json:"name"`   // attribute holding the id(s)
	Kind   RelationKind `json:"kind"`   // belongsTo, hasOne, hasMany
	Target string       `json:"target"` // referenced record type
}

// TypeSchema is the relationship metadata of one record type.
type TypeSchema struct {
	Name          string         `json:"name"`
	Namespace     string         `json:"namespace,omitempty"` // blob key; defaults to Name
	Relationships []Relationship `json:"relationships"`       // declaration order
}

// NamespaceKey returns the key under which the type's records are stored.
func (s TypeSchema) NamespaceKey() string {
	if s.Namespace != "" {
		return s.Namespace
	}
	return s.Name
}

// Relationship looks up a relationship by name.
func (s TypeSchema) Relationship(name string) (Relationship, bool) {
	for _, r := range s.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}

// Namespace is the per-type partition of the persisted blob.
// Records are keyed by IDKey of their id.
type Namespace struct {
	Records map[string]IRObject
}

// NewNamespace returns an empty namespace.
func NewNamespace() Namespace {
	return Namespace{Records: map[string]IRObject{}}
}

// NamespaceFromValue decodes a namespace from its blob form
// {"records": {id: attributes}}. A missing records field is empty.
func NamespaceFromValue(v IRValue) (Namespace, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return Namespace{}, fmt.Errorf("namespace: expected object, got %T", v)
	}
	ns := NewNamespace()
	raw, ok := obj[RecordsField]
	if !ok {
		return ns, nil
	}
	recs, ok := raw.(IRObject)
	if !ok {
		return Namespace{}, fmt.Errorf("namespace: %q: expected object, got %T", RecordsField, raw)
	}
	for id, rv := range recs {
		rec, ok := rv.(IRObject)
		if !ok {
			return Namespace{}, fmt.Errorf("namespace: record %q: expected object, got %T", id, rv)
		}
		ns.Records[id] = rec
	}
	return ns, nil
}

// Value encodes the namespace in its blob form. Embedded payloads are
// dropped; they are never persisted.
func (ns Namespace) Value() IRObject {
	recs := make(IRObject, len(ns.Records))
	for id, rec := range ns.Records {
		recs[id] = StripEmbedded(rec)
	}
	return IRObject{RecordsField: recs}
}

// StripEmbedded returns a copy of rec without the _embedded field.
func StripEmbedded(rec IRObject) IRObject {
	out := make(IRObject, len(rec))
	for k, v := range rec {
		if k == EmbeddedKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the namespace's id keys in listing order, see CompareIDKeys.
func (ns Namespace) Keys() []string {
	keys := make([]string, 0, len(ns.Records))
	for k := range ns.Records {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareIDKeys)
	return keys
}

// CompareIDKeys orders id keys for listing: canonical integer keys first in
// numeric order, then all other keys by byte order.
func CompareIDKeys(a, b string) int {
	an, aInt := integerKey(a)
	bn, bInt := integerKey(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(an, bn)
	case aInt:
		return -1
	case bInt:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

// integerKey reports whether k is the base-10 form of an IRInt id.
func integerKey(k string) (int64, bool) {
	n, err := strconv.ParseInt(k, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != k {
		return 0, false
	}
	return n, true
}
