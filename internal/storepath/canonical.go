package storepath

import "strings"

const (
	// DefaultStoreDir is the store-root segment stripped from full identifiers.
	DefaultStoreDir = "/nix/store"

	// DefaultHashLen is the width of a canonical identifier.
	DefaultHashLen = 32
)

// Canonicalizer maps full identifiers to their fixed-width canonical form.
//
// A full identifier looks like "/nix/store/<hash>-<name>". Its canonical
// form is the HashLen characters that follow the store root. Identifiers
// without the store root ("<hash>-<name>", "<hash>.narinfo", "<hash>") are
// truncated the same way, so both forms of one object compare equal.
//
// The zero value uses DefaultStoreDir and DefaultHashLen.
type Canonicalizer struct {
	StoreDir string
	HashLen  int
}

// Default returns a Canonicalizer with the default store root and width.
func Default() Canonicalizer {
	return Canonicalizer{StoreDir: DefaultStoreDir, HashLen: DefaultHashLen}
}

// Canonical returns the canonical form of id. Identifiers shorter than
// the hash width (after stripping the store root) are returned whole.
func (c Canonicalizer) Canonical(id string) string {
	s := strings.TrimPrefix(id, c.prefix())
	if n := c.width(); len(s) > n {
		s = s[:n]
	}
	return s
}

// Equal reports whether a and b name the same object.
func (c Canonicalizer) Equal(a, b string) bool {
	return c.Canonical(a) == c.Canonical(b)
}

// FullPath joins a bare name ("<hash>-<name>") onto the store root.
// Identifiers that already carry the store root are returned unchanged.
func (c Canonicalizer) FullPath(name string) string {
	if strings.HasPrefix(name, c.prefix()) {
		return name
	}
	return c.prefix() + name
}

func (c Canonicalizer) prefix() string {
	dir := c.StoreDir
	if dir == "" {
		dir = DefaultStoreDir
	}
	return strings.TrimSuffix(dir, "/") + "/"
}

func (c Canonicalizer) width() int {
	if c.HashLen <= 0 {
		return DefaultHashLen
	}
	return c.HashLen
}
