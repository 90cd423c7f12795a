// Package config loads pipctl's on-disk operator configuration: the
// default log level and PSHM region size guardrails. Grounded on
// coordinator.LoadConfig's YAML-file convention and
// modules/route/controlplane/cfg.go's datasize.ByteSize-typed config
// fields for human-readable size settings ("64MB" instead of a raw byte
// count).
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

// ShmConfig bounds the PSHM regions pipctl will probe or attach to.
type ShmConfig struct {
	// MaxRegionSize is the region size above which `pipctl shm probe`
	// prints a warning (after the discovered geometry), as a guard
	// against a malformed or hostile Superblock claiming an unreasonable
	// slot_count*slot_payload_bytes. The probe still succeeds, and
	// `pipctl shm watch` does not consult it.
	MaxRegionSize datasize.ByteSize `yaml:"max_region_size"`
}

// Config is pipctl's operator configuration.
type Config struct {
	LogLevel string    `yaml:"log_level"`
	Shm      ShmConfig `yaml:"shm"`
}

// Default returns pipctl's built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Shm: ShmConfig{
			MaxRegionSize: 64 * datasize.MB,
		},
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default() so any field the file omits keeps its default value. An
// empty path returns Default() unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// CheckRegionSize rejects a region whose total size exceeds the
// configured guardrail.
func (c *Config) CheckRegionSize(totalSize uint64) error {
	if datasize.ByteSize(totalSize) > c.Shm.MaxRegionSize {
		return fmt.Errorf("config: region size %s exceeds configured max %s",
			datasize.ByteSize(totalSize).String(), c.Shm.MaxRegionSize.String())
	}
	return nil
}
