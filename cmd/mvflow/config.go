package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix of environment overrides, e.g. MVFLOW_MASK_NORM.
const envPrefix = "mvflow"

type Config struct {
	LogPath  string  `yaml:"logPath" split_words:"true"`
	LogLevel string  `yaml:"logLevel" split_words:"true"`
	Workers  int     `yaml:"workers"`
	BandRows int     `yaml:"bandRows" split_words:"true"`
	Pel      int     `yaml:"pel"`
	MaskNorm float64 `yaml:"maskNorm" split_words:"true"`
	Gamma    float64 `yaml:"gamma"`
	// Padding is the minimum reference border in frame pixels. The
	// interp command widens it to cover the longest vector.
	Padding int `yaml:"padding"`
	// BlockW and BlockH size the zero-motion grid used when no vector file
	// is given.
	BlockW int `yaml:"blockW" split_words:"true"`
	BlockH int `yaml:"blockH" split_words:"true"`
}

// Verify config and set defaults. Every problem is reported, not only the
// first one.
func verifyConfig(config *Config) error {
	if config == nil {
		return errors.New("cannot verify config, config is nil")
	}

	var result *multierror.Error

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.Pel == 0 {
		config.Pel = 1
	}
	if config.Pel != 1 && config.Pel != 2 && config.Pel != 4 {
		result = multierror.Append(result, fmt.Errorf("pel must be 1, 2 or 4, got %d", config.Pel))
	}

	if config.MaskNorm == 0 {
		config.MaskNorm = 100
	}
	if config.MaskNorm < 0 {
		result = multierror.Append(result, fmt.Errorf("maskNorm must be positive, got %g", config.MaskNorm))
	}

	if config.Gamma == 0 {
		config.Gamma = 1
	}
	if config.Gamma < 0 {
		result = multierror.Append(result, fmt.Errorf("gamma must be positive, got %g", config.Gamma))
	}

	if config.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("workers must not be negative, got %d", config.Workers))
	}

	if config.BandRows < 0 {
		result = multierror.Append(result, fmt.Errorf("bandRows must not be negative, got %d", config.BandRows))
	}

	if config.Padding == 0 {
		config.Padding = 16
	}
	if config.Padding < 0 {
		result = multierror.Append(result, fmt.Errorf("padding must not be negative, got %d", config.Padding))
	}

	if config.BlockW == 0 {
		config.BlockW = 8
	}
	if config.BlockH == 0 {
		config.BlockH = 8
	}
	if config.BlockW < 0 || config.BlockH < 0 {
		result = multierror.Append(result, fmt.Errorf("block size must be positive, got %dx%d", config.BlockW, config.BlockH))
	}

	return result.ErrorOrNil()
}

// GetConfig loads the YAML config at path (defaults only when path is
// empty), applies environment overrides and verifies the result.
func GetConfig(path string) (Config, error) {
	config := Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}

		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	// Override with env variables if they are passed in
	err := envconfig.Process(envPrefix, &config)
	if err != nil {
		return Config{}, err
	}

	err = verifyConfig(&config)
	if err != nil {
		return Config{}, err
	}

	return config, nil
}
