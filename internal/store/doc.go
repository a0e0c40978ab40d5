// Package store holds the immutable record set loaded for one run.
//
// The store is built once from a listing and is read-only afterwards:
//   - Records: keyed by canonical identifier (first seen wins on duplicates)
//   - Index: canonical identifiers interned to dense uint32 indices, in
//     lexical order, so bitmaps over indices iterate deterministically
//   - References: resolved to indices once; references outside the
//     universe are kept separately as canonical strings ("dangling")
//   - Origins: origin URL → transfer size, later records overwriting
//     earlier ones that share a URL
//
// Nothing in this package knows about closures or retention; it is the
// data container the engine and the sweep work against.
package store
