// Copyright Cometadata Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDOIs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"bare DOI", "See 10.1234/example.paper for details", []string{"10.1234/example.paper"}},
		{"doi prefix", "doi:10.1234/example", []string{"10.1234/example"}},
		{"doi.org URL", "https://doi.org/10.1234/example", []string{"10.1234/example"}},
		{"dx.doi.org URL", "http://dx.doi.org/10.1234/example", []string{"10.1234/example"}},
		{"multiple DOIs", "See 10.1234/first and 10.5678/second", []string{"10.1234/first", "10.5678/second"}},
		{"case-folded duplicates", "10.1234/test and also 10.1234/TEST", []string{"10.1234/test"}},
		{"no DOI", "no identifiers in this sentence", nil},
		{"empty", "", nil},
		{"trailing sentence period", "cited in 10.2/b.", []string{"10.2/b"}},
		{"parenthesized", "(10.1234/inside)", []string{"10.1234/inside"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := ExtractDOIs(tt.text)
			got := make([]string, 0, len(matches))
			for _, m := range matches {
				got = append(got, m.DOI)
			}
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDOIsRawSubstring(t *testing.T) {
	matches := ExtractDOIs("as shown in 10.1234/Example.Paper, the")
	require.Len(t, matches, 1)
	assert.Equal(t, "10.1234/example.paper", matches[0].DOI)
	assert.Equal(t, "10.1234/Example.Paper", matches[0].Raw)
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing period", "10.1234/test.", "10.1234/test"},
		{"trailing comma", "10.1234/test,", "10.1234/test"},
		{"trailing paren", "10.1234/test)", "10.1234/test"},
		{"stacked punctuation", "10.1234/test],", "10.1234/test"},
		{"url-encoded slash", "10.1234%2Ftest", "10.1234/test"},
		{"url-encoded colon lower", "10.1234/a%3ab", "10.1234/a:b"},
		{"html entity", "10.1234/test&amp", "10.1234/test"},
		{"entity then punctuation", "10.1234/test.&amp;", "10.1234/test"},
		{"lowercased", "10.1234/TEST", "10.1234/test"},
		{"already clean", "10.1234/test", "10.1234/test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDOI(tt.input))
		})
	}
}

func TestNormalizeDOIIdempotent(t *testing.T) {
	inputs := []string{
		"10.1234/test.",
		"10.1234%2Ftest),",
		"10.1234/test&amp;",
		"10.48550/arXiv.2403.03542",
	}
	for _, input := range inputs {
		once := NormalizeDOI(input)
		assert.Equal(t, once, NormalizeDOI(once), "normalize should be idempotent for %q", input)
	}
}

func TestDOIPrefix(t *testing.T) {
	tests := []struct {
		name   string
		doi    string
		want   string
		wantOK bool
	}{
		{"plain", "10.1234/example", "10.1234", true},
		{"arxiv DOI", "10.48550/arXiv.2403.12345", "10.48550", true},
		{"uppercase prefix input", "10.1234/X", "10.1234", true},
		{"no slash", "invalid", "", false},
		{"slash but not a DOI", "foo/bar", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DOIPrefix(tt.doi)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
