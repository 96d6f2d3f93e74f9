// Package config loads runtime settings for metadata tracking and
// logging from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metatensor-ml/metatensor/internal/logger"
	"github.com/metatensor-ml/metatensor/meta"
)

// Config is the on-disk configuration. Tracking fields are pointers so
// "not set" is distinguishable from an explicit false.
type Config struct {
	TrackMeta       *bool `yaml:"track_meta"`
	TrackTransforms *bool `yaml:"track_transforms"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads the config file. A missing file yields a zero Config and no
// error; a malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Apply pushes the configuration into the process-wide tracking flags
// and the logger. Unset fields keep their current values.
func (c Config) Apply() {
	if c.TrackMeta != nil {
		meta.SetTrackMeta(*c.TrackMeta)
	}
	if c.TrackTransforms != nil {
		meta.SetTrackTransforms(*c.TrackTransforms)
	}
	if c.LogLevel != "" || c.LogFormat != "" {
		logger.Setup(c.LogLevel, c.LogFormat)
	}
}
