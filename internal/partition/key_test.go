// Copyright Cometadata Inc., 2026. All rights reserved.

package partition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDOI(t *testing.T) {
	tests := []struct {
		citedID string
		want    string
	}{
		{"10.1234/example", "10.1234"},
		{"10.48550/arXiv.2403.12345", "10.48550"},
		{"10.1234/a/b/c", "10.1234"},
	}
	for _, tt := range tests {
		t.Run(tt.citedID, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.citedID))
		})
	}
}

func TestKeyArxivModern(t *testing.T) {
	assert.Equal(t, "2403", Key("2403.12345"))
	assert.Equal(t, "2312", Key("2312.00001"))
	assert.Equal(t, "0704", Key("0704.0001"))
}

func TestKeyArxivOldFormat(t *testing.T) {
	tests := []struct {
		citedID string
		want    string
	}{
		{"hep-ph/9901234", "hep-"},
		{"cs.dm/9910013", "cs.d"},
		{"astro-ph/0001001", "astr"},
		{"cs/9901234", "cs_9"},
		{"q-bio/0401001", "q-bi"},
	}
	for _, tt := range tests {
		t.Run(tt.citedID, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.citedID))
		})
	}
}

func TestKeyShortID(t *testing.T) {
	assert.Equal(t, "abc", Key("abc"))
	assert.Equal(t, "a", Key("a"))
	assert.Equal(t, "", Key(""))
}

func TestKeyStableUnderCaseFolding(t *testing.T) {
	for _, id := range []string{"10.1234/Example", "CS.DM/9910013", "2403.12345"} {
		assert.Equal(t, Key(strings.ToLower(id)), Key(id))
		assert.Equal(t, Key(strings.ToUpper(id)), Key(id))
	}
}

func TestKeyFilesystemSafe(t *testing.T) {
	for _, id := range []string{"cs/9901234", "10.1234/a/b", "hep-ph/9901234"} {
		key := Key(id)
		assert.NotContains(t, key, "/")
	}
}
