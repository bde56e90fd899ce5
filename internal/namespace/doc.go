// Package namespace reads and writes per-type record namespaces inside the
// single blob a relstore keeps on its device.
//
// The blob lives under one device key and has the shape
//
//	{ typeKey: { "records": { id: attributes } } }
//
// encoded as canonical JSON (see ir.MarshalCanonical). Every Persist is a
// read-modify-write of the whole blob: it reads the current blob, replaces
// one type key and writes everything back with a single Set. Two Persist
// calls for different type keys that interleave can therefore lose one of
// the two changes. Store does not guard against this; callers that mutate
// concurrently serialize their writes (records.Store does).
package namespace
