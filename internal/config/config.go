// Package config provides configuration loading for the OCR pipeline.
// Supports YAML files, environment variable overrides, and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// Config holds all configuration for a pipeline run.
type Config struct {
	InputDir      string           `yaml:"input_dir"`
	OutputDir     string           `yaml:"output_dir"`
	PDFDPI        int              `yaml:"pdf_dpi"`
	OCR           OCRConfig        `yaml:"ocr"`
	Preprocessing PreprocessConfig `yaml:"preprocessing"`
	Index         IndexConfig      `yaml:"index"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// OCRConfig holds text-recognition engine settings.
type OCRConfig struct {
	Language    string `yaml:"language"`
	TessdataDir string `yaml:"tessdata_dir"`
	// PageSegMode is the Tesseract page segmentation mode; -1 keeps the
	// engine default.
	PageSegMode int `yaml:"page_seg_mode"`
}

// PreprocessConfig holds image preprocessing settings.
type PreprocessConfig struct {
	Enabled      bool               `yaml:"enabled"`
	Grayscale    bool               `yaml:"grayscale"`
	Deskew       bool               `yaml:"deskew"`
	Binarization BinarizationConfig `yaml:"binarization"`
	// NoiseRemoval selects a denoise filter, e.g. "median_3". Empty disables.
	NoiseRemoval string `yaml:"noise_removal"`
}

// BinarizationConfig holds thresholding settings.
type BinarizationConfig struct {
	// Method is "otsu", "adaptive", or empty to skip binarization.
	Method    string `yaml:"method"`
	BlockSize int    `yaml:"block_size"`
	C         int    `yaml:"c"`
}

// IndexConfig holds run-index database settings.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads configuration from a YAML file and applies environment
// overrides. path may be empty to use defaults only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		InputDir:  "input_data",
		OutputDir: "output_data",
		PDFDPI:    300,
		OCR: OCRConfig{
			Language:    "eng",
			PageSegMode: -1,
		},
		Preprocessing: PreprocessConfig{
			Enabled:   true,
			Grayscale: true,
			Binarization: BinarizationConfig{
				BlockSize: 11,
				C:         2,
			},
		},
		Index: IndexConfig{
			Path: "ocr-runs.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return domain.ConfigError("input_dir must not be empty", nil)
	}
	if c.OutputDir == "" {
		return domain.ConfigError("output_dir must not be empty", nil)
	}
	if c.PDFDPI < 1 {
		return domain.ConfigError(fmt.Sprintf("pdf_dpi must be positive, got %d", c.PDFDPI), nil)
	}
	if c.OCR.Language == "" {
		return domain.ConfigError("ocr.language must not be empty", nil)
	}
	if c.OCR.PageSegMode < -1 || c.OCR.PageSegMode > 13 {
		return domain.ConfigError(fmt.Sprintf("ocr.page_seg_mode out of range: %d", c.OCR.PageSegMode), nil)
	}

	switch c.Preprocessing.Binarization.Method {
	case "", "otsu", "adaptive":
	default:
		return domain.ConfigError(
			fmt.Sprintf("unknown binarization method: %s", c.Preprocessing.Binarization.Method), nil)
	}
	if c.Preprocessing.Binarization.Method == "adaptive" {
		bs := c.Preprocessing.Binarization.BlockSize
		if bs < 3 || bs%2 == 0 {
			return domain.ConfigError(
				fmt.Sprintf("binarization block_size must be odd and >= 3, got %d", bs), nil)
		}
	}
	if nr := c.Preprocessing.NoiseRemoval; nr != "" {
		if _, err := ParseMedianKernel(nr); err != nil {
			return err
		}
	}
	if c.Index.Enabled && c.Index.Path == "" {
		return domain.ConfigError("index.path must not be empty when the index is enabled", nil)
	}
	return nil
}

// ParseMedianKernel parses a "median_<k>" noise-removal spec and returns the
// kernel size k, which must be odd and at least 3.
func ParseMedianKernel(spec string) (int, error) {
	const prefix = "median_"
	if !strings.HasPrefix(spec, prefix) {
		return 0, domain.ConfigError(fmt.Sprintf("unknown noise_removal method: %s", spec), nil)
	}
	k, err := strconv.Atoi(strings.TrimPrefix(spec, prefix))
	if err != nil {
		return 0, domain.ConfigError(fmt.Sprintf("invalid noise_removal kernel size in %q", spec), err)
	}
	if k < 3 || k%2 == 0 {
		return 0, domain.ConfigError(
			fmt.Sprintf("noise_removal kernel size must be odd and >= 3, got %d", k), nil)
	}
	return k, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OCR_INPUT_DIR"); v != "" {
		cfg.InputDir = v
	}
	if v := os.Getenv("OCR_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("OCR_PDF_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			cfg.PDFDPI = dpi
		}
	}
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if v := os.Getenv("TESSDATA_PREFIX"); v != "" {
		cfg.OCR.TessdataDir = v
	}
	if v := os.Getenv("OCR_INDEX_PATH"); v != "" {
		cfg.Index.Enabled = true
		cfg.Index.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
