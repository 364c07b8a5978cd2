// Package config loads the optional run configuration for msd-analyse.
//
// Only presentation and bookkeeping settings live here. The analysis itself
// (input path, column names, fit windows, figure filename) is fixed.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/diffusion.report/internal/fsutil"
)

// DefaultAssetsHost serves the echarts JavaScript for the interactive view.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

const (
	defaultMaxViewPoints = 5000
	minMaxViewPoints     = 100
)

// RunConfig is the root configuration. Every field is optional; the Get*
// methods supply defaults for omitted fields.
type RunConfig struct {
	// OpenBrowser shows the interactive figures after the PDF is written.
	OpenBrowser *bool `json:"open_browser,omitempty"`

	// ResultsDB is the SQLite ledger path. Empty disables the ledger.
	ResultsDB *string `json:"results_db,omitempty"`

	// MaxViewPoints bounds the raw samples per series in the HTML view.
	MaxViewPoints *int `json:"max_view_points,omitempty"`

	// AssetsHost overrides where the HTML view loads echarts from.
	AssetsHost *string `json:"assets_host,omitempty"`
}

// Default returns a RunConfig with all fields unset.
func Default() *RunConfig {
	return &RunConfig{}
}

// Load reads a RunConfig from a JSON file on fsys. The file must have a .json
// extension and be at most 1MB.
func Load(fsys fsutil.FileSystem, path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.MaxViewPoints != nil && *c.MaxViewPoints < minMaxViewPoints {
		return fmt.Errorf("max_view_points must be at least %d, got %d", minMaxViewPoints, *c.MaxViewPoints)
	}

	if c.ResultsDB != nil && *c.ResultsDB != "" {
		if ext := filepath.Ext(*c.ResultsDB); ext != ".db" && ext != ".sqlite" {
			return fmt.Errorf("results_db must end in .db or .sqlite, got %q", *c.ResultsDB)
		}
	}

	return nil
}

// GetOpenBrowser returns the open_browser value or the default.
func (c *RunConfig) GetOpenBrowser() bool {
	if c.OpenBrowser == nil {
		return true
	}
	return *c.OpenBrowser
}

// GetResultsDB returns the results_db value or the default.
func (c *RunConfig) GetResultsDB() string {
	if c.ResultsDB == nil {
		return "" // ledger disabled
	}
	return *c.ResultsDB
}

// GetMaxViewPoints returns the max_view_points value or the default.
func (c *RunConfig) GetMaxViewPoints() int {
	if c.MaxViewPoints == nil {
		return defaultMaxViewPoints
	}
	return *c.MaxViewPoints
}

// GetAssetsHost returns the assets_host value or the default.
func (c *RunConfig) GetAssetsHost() string {
	if c.AssetsHost == nil || *c.AssetsHost == "" {
		return DefaultAssetsHost
	}
	return *c.AssetsHost
}
