package config

import "github.com/caarlos0/env/v11"

type IRCConfig struct {
	Addr  string `env:"IRC_ADDR" envDefault:"localhost:6667"`
	Nick  string `env:"IRC_NICK" envDefault:"aigamedev"`
	User  string `env:"IRC_USER"`
	Name  string `env:"IRC_NAME" envDefault:"Resistance moderator"`
	Lobby string `env:"IRC_LOBBY" envDefault:"#resistance"`
	TLS   bool   `env:"IRC_TLS" envDefault:"false"`
}

func LoadIRC() (IRCConfig, error) {
	var cfg IRCConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.User == "" {
		cfg.User = cfg.Nick
	}
	return cfg, nil
}
