package storepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHash = "0123456789abcdfghijklmnpqrsvwxyz"

func TestCanonical(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full path", "/nix/store/" + testHash + "-hello-2.12", testHash},
		{"full path without name", "/nix/store/" + testHash, testHash},
		{"bare name", testHash + "-hello-2.12", testHash},
		{"canonical", testHash, testHash},
		{"narinfo key", testHash + ".narinfo", testHash},
		{"short id kept whole", "abc", "abc"},
		{"short full path", "/nix/store/abc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Canonical(tt.in))
		})
	}
}

func TestCanonicalZeroValueUsesDefaults(t *testing.T) {
	var c Canonicalizer
	assert.Equal(t, testHash, c.Canonical("/nix/store/"+testHash+"-x"))
}

func TestCanonicalCustomStore(t *testing.T) {
	c := Canonicalizer{StoreDir: "/gnu/store/", HashLen: 8}

	assert.Equal(t, "01234567", c.Canonical("/gnu/store/"+testHash+"-guile"))
	assert.Equal(t, "01234567", c.Canonical(testHash))
	// Another store root is not stripped.
	assert.Equal(t, "/nix/sto", c.Canonical("/nix/store/"+testHash))
}

func TestEqual(t *testing.T) {
	c := Default()

	assert.True(t, c.Equal("/nix/store/"+testHash+"-a", testHash))
	assert.True(t, c.Equal(testHash+"-b", "/nix/store/"+testHash+"-a"))
	assert.False(t, c.Equal(testHash, "1"+testHash[1:]))
}

func TestFullPath(t *testing.T) {
	c := Default()

	assert.Equal(t, "/nix/store/"+testHash+"-a", c.FullPath(testHash+"-a"))
	assert.Equal(t, "/nix/store/"+testHash+"-a", c.FullPath("/nix/store/"+testHash+"-a"))
}
