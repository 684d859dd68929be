package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"records-scraper/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseYearsFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    config.YearRange
		wantErr bool
	}{
		{"1990-2000", config.YearRange{From: 1990, To: 2000}, false},
		{"2021", config.YearRange{From: 2021, To: 2021}, false},
		{" 1990 - 2000 ", config.YearRange{From: 1990, To: 2000}, false},
		{"abc", config.YearRange{}, true},
		{"1990-", config.YearRange{}, true},
		{"", config.YearRange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseYearsFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
base_url_template: "https://records.example.gov/listing?year=%d"
years:
  from: 2015
  to: 2022
output_dir: ./out
state_dir: ./state
num_workers: 4
`)

	var stdout, stderr bytes.Buffer
	code := doValidate(path, &stdout, &stderr)

	assert.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "Configuration valid.")
	assert.Contains(t, stdout.String(), "8 listing pages")
}

func TestDoValidate_MissingTemplate(t *testing.T) {
	path := writeConfig(t, `
output_dir: ./out
`)

	var stdout, stderr bytes.Buffer
	code := doValidate(path, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "base_url_template")
}

func TestDoValidate_UnreadableFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doValidate(filepath.Join(t.TempDir(), "missing.yaml"), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr.String(), "Error:"))
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
base_url_template: "https://records.example.gov/listing?year=%d"
years:
  from: 1990
  to: 1995
num_workers: 8
document_extensions: [".pdf", ".xlsx"]
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.YearRange{From: 1990, To: 1995}, cfg.Years)
	assert.Equal(t, 8, cfg.NumWorkers)
	assert.Equal(t, []string{".pdf", ".xlsx"}, cfg.DocumentExtensions)
}
