// Package device provides the key-value storage devices relstore persists its
// blob to.
//
// A Device stores opaque values under string keys. relstore only ever uses a
// single key: the whole multi-type blob lives under it and is rewritten on
// every mutation. Devices make no attempt at merging concurrent writers; the
// last Set wins.
//
// # Implementations
//
//   - Memory: process-local map, used by tests and ephemeral stores
//   - SQLite: durable kv table in a SQLite database (WAL mode)
//
// # SQLite Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package device
