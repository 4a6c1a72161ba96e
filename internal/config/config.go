// Package config loads the engine configuration from .shintel.yaml.
//
// Every value has a working default so the tool runs without a config file;
// command-line flags override whatever the file provides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no config path is given.
const DefaultPath = ".shintel.yaml"

// Config is the on-disk configuration.
type Config struct {
	// SourceDir is where the retrieval collaborator deposits raw scan
	// export files.
	SourceDir string `yaml:"source_dir"`

	// StorePath is the canonical store snapshot.
	StorePath string `yaml:"store_path"`

	// LedgerPath is the processed-files ledger.
	LedgerPath string `yaml:"ledger_path"`

	// Order is the ingest file ordering: "name" or "mtime".
	Order string `yaml:"order"`

	Compact CompactConfig `yaml:"compact"`
	Fetch   FetchConfig   `yaml:"fetch"`
}

// CompactConfig configures the dedup compactor.
type CompactConfig struct {
	// IncludeIssue widens the compaction key to the full natural key.
	IncludeIssue bool `yaml:"include_issue"`

	// UnresolvedPath preserves unkeyable records in a side snapshot
	// instead of dropping them. Empty means drop.
	UnresolvedPath string `yaml:"unresolved_path"`
}

// FetchConfig configures report retrieval.
type FetchConfig struct {
	// LinksFile is the newline-delimited download link list.
	LinksFile string `yaml:"links_file"`

	// Concurrency bounds simultaneous downloads.
	Concurrency int `yaml:"concurrency"`

	// RequestsPerSecond limits the download request rate.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SourceDir:  "src",
		StorePath:  "dst/destination.csv",
		LedgerPath: "dst/processed_files.txt",
		Order:      "name",
		Fetch: FetchConfig{
			LinksFile:         "links.txt",
			Concurrency:       4,
			RequestsPerSecond: 2,
		},
	}
}

// Load reads the config at path, or Default() when the file is absent.
// Unset fields fall back to their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Order {
	case "name", "mtime":
	default:
		return fmt.Errorf("order must be \"name\" or \"mtime\", got %q", c.Order)
	}
	if c.Fetch.Concurrency < 0 {
		return fmt.Errorf("fetch.concurrency cannot be negative")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second cannot be negative")
	}
	return nil
}
