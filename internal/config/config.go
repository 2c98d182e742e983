// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config handles the YAML configuration of the nandsim command.
//
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/db47h/nandsim/internal/logging"
)

// Defaults.
//
const (
	DefaultCircuit        = "circuit.json"
	DefaultReportInterval = 2 * time.Second
	DefaultOpsLimit       = 1 << 24
)

// Config is the command configuration.
//
type Config struct {
	// Circuit is the circuit file loaded at startup and saved on exit.
	Circuit string `yaml:"circuit"`
	// Autosave saves the circuit on exit when it was modified.
	Autosave bool `yaml:"autosave"`
	// Running starts the simulation right away.
	Running bool `yaml:"running"`
	// OpsLimit caps the evaluations per step. 0 means no limit.
	OpsLimit uint64 `yaml:"opsLimit"`
	// ReportInterval is the period of the statistics report. 0 disables it.
	ReportInterval time.Duration `yaml:"reportInterval"`
	Log            LogConfig     `yaml:"log"`
}

// LogConfig configures logging.
//
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the default configuration.
//
func Default() *Config {
	return &Config{
		Circuit:        DefaultCircuit,
		Autosave:       true,
		Running:        true,
		OpsLimit:       DefaultOpsLimit,
		ReportInterval: DefaultReportInterval,
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads the configuration file at path over the defaults. A missing file
// yields the defaults.
//
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return cfg, nil
}

// Save writes cfg to path.
//
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

// Validate checks the configuration values.
//
func (c *Config) Validate() error {
	if c.Circuit == "" {
		return errors.New("circuit path is empty")
	}
	if c.ReportInterval < 0 {
		return errors.Errorf("negative report interval %v", c.ReportInterval)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return errors.Errorf("unknown log encoding %q", c.Log.Encoding)
	}
	return nil
}
