package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	Addr  string `env:"IRC_ADDR" envDefault:"localhost:6667"`
	Nick  string `env:"BOT_NICK" envDefault:"dumbbot"`
	Lobby string `env:"IRC_LOBBY" envDefault:"#resistance"`
	TLS   bool   `env:"IRC_TLS" envDefault:"false"`
	// Seed makes the bot's choices reproducible; 0 picks a random seed.
	Seed int64 `env:"BOT_SEED" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
