// Package storepath provides the store object record type and the
// canonical identifier rule shared by every other package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import storepath; storepath imports nothing internal.
//
// Key design constraints:
//   - Identifiers are compared only after canonicalization
//   - Timestamps are epoch seconds (int64), sizes are bytes (int64)
//   - JSON tags follow the camelCase field names of the input listing
package storepath
