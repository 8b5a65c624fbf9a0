package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	// File mirrors the log into a rotating file; empty logs to stdout only.
	File    string `env:"LOG_FILE"`
	MaxMB   int    `env:"LOG_MAX_MB" envDefault:"10"`
	Backups int    `env:"LOG_BACKUPS" envDefault:"3"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.File != "" && cfg.MaxMB < 1 {
		return cfg, fmt.Errorf("LOG_MAX_MB must be at least 1, got %d", cfg.MaxMB)
	}
	if cfg.Backups < 0 {
		return cfg, fmt.Errorf("LOG_BACKUPS must not be negative, got %d", cfg.Backups)
	}
	return cfg, nil
}
