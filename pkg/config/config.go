// Package config loads the ambient deployment configuration rupdate needs
// beyond what spec.md's core packages take as explicit arguments: where
// the partition config blob and update environment device live, and the
// advisory lock path. Grounded on pkg/pillar/cmd/eveadm/cmd/root.go's
// config-file pattern, using a direct YAML unmarshal rather than viper to
// keep the dependency proportional to a single small struct, and validated
// with the same github.com/go-playground/validator/v10 pkg/pillar depends
// on.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// DefaultPath is the config file location used when --config/RUPDATE_CONFIG
// is not set.
const DefaultPath = "/etc/rupdate/config.yaml"

// ConfigEnvVar overrides DefaultPath.
const ConfigEnvVar = "RUPDATE_CONFIG"

// PartitionConfigEnvVar overrides PartitionConfigPath, matching the
// original CLI's RUPDATE_PART_CONFIG (see original_source/rupdate/src/lib.rs).
const PartitionConfigEnvVar = "RUPDATE_PART_CONFIG"

const (
	defaultLockPath = "/var/lock/rupdate"
	defaultSlotSize = 4096
)

// UpdateEnvConfig locates the two-slot UpdateState region.
type UpdateEnvConfig struct {
	Device     string `yaml:"device" validate:"required"`
	SlotOffset int64  `yaml:"slotOffset" validate:"gte=0"`
	SlotSize   int64  `yaml:"slotSize" validate:"gt=0"`
}

// Config is the full ambient deployment configuration.
type Config struct {
	PartitionConfigPath string          `yaml:"partitionConfigPath" validate:"required"`
	UpdateEnv           UpdateEnvConfig `yaml:"updateEnv" validate:"required"`
	LockPath            string          `yaml:"lockPath"`
}

// Offsets returns the two slot offsets implied by SlotOffset/SlotSize.
func (c *Config) Offsets() [2]int64 {
	return [2]int64{c.UpdateEnv.SlotOffset, c.UpdateEnv.SlotOffset + c.UpdateEnv.SlotSize}
}

// Load reads and validates the YAML config at path, applying defaults for
// LockPath and honoring the RUPDATE_PART_CONFIG environment override.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, rerror.Wrapf(rerror.IoError, err, "reading config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, rerror.Wrapf(rerror.MalformedEncoding, err, "parsing config %s", path)
	}

	if cfg.LockPath == "" {
		cfg.LockPath = defaultLockPath
	}
	if cfg.UpdateEnv.SlotSize == 0 {
		cfg.UpdateEnv.SlotSize = defaultSlotSize
	}
	if override := os.Getenv(PartitionConfigEnvVar); override != "" {
		cfg.PartitionConfigPath = override
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, rerror.Wrapf(rerror.MalformedEncoding, err, "validating config %s", path)
	}
	return &cfg, nil
}

// Path resolves the config file location from RUPDATE_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p
	}
	return DefaultPath
}
