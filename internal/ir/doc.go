// Package ir provides the attribute-map value model and relationship metadata
// types shared by every relstore package.
//
// This package contains type definitions and encoding only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Record ids are IRString or IRInt; their namespace key is the canonical
//     string form (see IDKey)
//   - The persisted blob is canonical JSON (RFC 8785 key order, NFC strings)
package ir
