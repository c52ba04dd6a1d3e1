package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300, cfg.PDFDPI)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.False(t, cfg.Index.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_dir: /data/in
output_dir: /data/out
pdf_dpi: 150
ocr:
  language: rus+eng
preprocessing:
  enabled: true
  deskew: true
  binarization:
    method: otsu
  noise_removal: median_3
index:
  enabled: true
  path: /tmp/runs.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, 150, cfg.PDFDPI)
	assert.Equal(t, "rus+eng", cfg.OCR.Language)
	assert.True(t, cfg.Preprocessing.Deskew)
	assert.Equal(t, "otsu", cfg.Preprocessing.Binarization.Method)
	assert.True(t, cfg.Index.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindConfig, domain.ErrorKindOf(err))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dpi", func(c *Config) { c.PDFDPI = 0 }},
		{"negative dpi", func(c *Config) { c.PDFDPI = -10 }},
		{"empty input dir", func(c *Config) { c.InputDir = "" }},
		{"empty language", func(c *Config) { c.OCR.Language = "" }},
		{"psm too large", func(c *Config) { c.OCR.PageSegMode = 99 }},
		{"unknown binarization", func(c *Config) { c.Preprocessing.Binarization.Method = "magic" }},
		{"even adaptive block", func(c *Config) {
			c.Preprocessing.Binarization.Method = "adaptive"
			c.Preprocessing.Binarization.BlockSize = 10
		}},
		{"bad noise removal", func(c *Config) { c.Preprocessing.NoiseRemoval = "gaussian_3" }},
		{"even median kernel", func(c *Config) { c.Preprocessing.NoiseRemoval = "median_4" }},
		{"index without path", func(c *Config) {
			c.Index.Enabled = true
			c.Index.Path = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseMedianKernel(t *testing.T) {
	k, err := ParseMedianKernel("median_5")
	require.NoError(t, err)
	assert.Equal(t, 5, k)

	_, err = ParseMedianKernel("median_abc")
	assert.Error(t, err)

	_, err = ParseMedianKernel("blur_3")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OCR_INPUT_DIR", "/env/in")
	t.Setenv("OCR_PDF_DPI", "72")
	t.Setenv("OCR_LANGUAGE", "deu")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/in", cfg.InputDir)
	assert.Equal(t, 72, cfg.PDFDPI)
	assert.Equal(t, "deu", cfg.OCR.Language)
}
