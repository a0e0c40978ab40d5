// Package source loads store object records.
//
// A source is selected from a textual spec:
//
//	-, ""              JSON on standard input
//	s3://bucket/key    JSON object in S3 (or an S3-compatible endpoint)
//	sqlite:<path>      Nix store database (ValidPaths and Refs tables)
//	narinfo:<dir>      directory of .narinfo files
//	<path>             JSON file
//
// JSON payloads may be zstd, lz4, gzip or framed snappy compressed; the
// leading magic bytes decide.
// Every source returns the complete record list or an error; nothing is
// streamed into the store while loading.
package source
