package config

import "github.com/caarlos0/env/v11"

// StatusConfig configures the read-only HTTP status surface. An empty
// address disables it.
type StatusConfig struct {
	Addr string `env:"STATUS_ADDR" envDefault:":8090"`
}

func LoadStatus() (StatusConfig, error) {
	var cfg StatusConfig
	err := env.Parse(&cfg)
	return cfg, err
}
