// Package config loads the ambient settings shared by a heap file and its
// external sort: data paths and the spill-compression toggle.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SortConfig controls the external merge sort's working directory and
// whether its spill files are compressed.
type SortConfig struct {
	WorkDir  string `yaml:"workDir"`
	Compress bool   `yaml:"compress"`
}

// Config is the top-level, YAML-loadable configuration for a heapdb
// instance.
type Config struct {
	DataDir string     `yaml:"dataDir"`
	Sort    SortConfig `yaml:"sort"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Sort: SortConfig{
			WorkDir:  "./data/spill",
			Compress: true,
		},
	}
}

// Load reads a YAML configuration file, falling back to Default's values
// for any field the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
