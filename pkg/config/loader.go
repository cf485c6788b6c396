package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file, falling back to the usual
// search paths when path is empty. Environment variables prefixed
// CHAINWATCH_ override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("chainwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/chainwatch")
	}

	setDefaults(v)

	v.SetEnvPrefix("CHAINWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file; defaults alone are a working setup.
			return parse(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parse(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ensemble.policy", "weighted")
	v.SetDefault("ensemble.threshold", 0.5)
	v.SetDefault("ensemble.objective", "f1")
	v.SetDefault("ensemble.detector_timeout", "30s")
	v.SetDefault("ensemble.seed", 42)

	v.SetDefault("detectors", []map[string]any{
		{"id": "iforest", "type": "iforest", "trees": 100, "contamination": 0.1, "seed": 42},
		{"id": "zscore", "type": "zscore", "threshold": 3.0},
		{"id": "mad", "type": "mad", "threshold": 3.5},
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
