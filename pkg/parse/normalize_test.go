package parse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases scheme and host", "HTTPS://Records.Example.GOV/Files/a.pdf", "https://records.example.gov/Files/a.pdf"},
		{"strips default http port", "http://records.example.gov:80/a.pdf", "http://records.example.gov/a.pdf"},
		{"strips default https port", "https://records.example.gov:443/a.pdf", "https://records.example.gov/a.pdf"},
		{"keeps custom port", "http://records.example.gov:8080/a.pdf", "http://records.example.gov:8080/a.pdf"},
		{"strips fragment", "https://records.example.gov/a.pdf#page=2", "https://records.example.gov/a.pdf"},
		{"strips query", "https://records.example.gov/a.pdf?download=1", "https://records.example.gov/a.pdf"},
		{"strips trailing slash", "https://records.example.gov/files/", "https://records.example.gov/files"},
		{"root path preserved", "https://records.example.gov", "https://records.example.gov/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, NormalizeURL(u))
		})
	}
}

func TestParseAndNormalize_RequiresScheme(t *testing.T) {
	_, _, err := ParseAndNormalize("records.example.gov/a.pdf")
	assert.Error(t, err)

	normalized, parsed, err := ParseAndNormalize("https://records.example.gov/a.pdf?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://records.example.gov/a.pdf", normalized)
	assert.Equal(t, "x=1", parsed.RawQuery, "input URL must not be modified")
}

func TestResolveRef(t *testing.T) {
	base, err := url.Parse("https://records.example.gov/listing?year=2021")
	require.NoError(t, err)

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"absolute", "https://cdn.example.org/a.pdf", "https://cdn.example.org/a.pdf"},
		{"root relative", "/files/a.pdf", "https://records.example.gov/files/a.pdf"},
		{"relative", "files/a.pdf", "https://records.example.gov/files/a.pdf"},
		{"whitespace trimmed", "  /files/a.pdf  ", "https://records.example.gov/files/a.pdf"},
		{"empty", "", ""},
		{"mailto rejected", "mailto:someone@example.gov", ""},
		{"javascript rejected", "javascript:void(0)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveRef(base, tt.href))
		})
	}
}
