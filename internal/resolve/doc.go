// Package resolve expands record references into embedded records.
//
// For every relationship declared on a record's type, the Resolver fetches
// the referenced record(s) through a Fetcher and attaches them under
// ir.EmbeddedKey:
//
//	{"id": 1, "comments": [1, 2]}
//
// becomes
//
//	{"id": 1, "comments": [1, 2], "_embedded": {"comments": [{"id": 1, ...}, {"id": 2, ...}]}}
//
// Resolution is bounded by an explicit depth. A Resolver called with depth
// d fetches related records with depth d-1, and depth 0 never expands, so
// depth 1 embeds exactly one hop and terminates on cyclic record graphs.
package resolve
