package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DisconnectAbort fails the whole session when an occupant stops answering.
const DisconnectAbort = "abort"

type ModeratorConfig struct {
	PoolCapacity      int           `env:"POOL_CAPACITY" envDefault:"100"`
	QueueSize         int           `env:"QUEUE_SIZE" envDefault:"256"`
	ReplyTimeout      time.Duration `env:"REPLY_TIMEOUT" envDefault:"2m"`
	HumanReplyTimeout time.Duration `env:"HUMAN_REPLY_TIMEOUT" envDefault:"30m"`
	TeardownTimeout   time.Duration `env:"TEARDOWN_TIMEOUT" envDefault:"1m"`
	DisconnectPolicy  string        `env:"DISCONNECT_POLICY" envDefault:"abort"`
	Reprompt          bool          `env:"REPROMPT_ON_PARSE_ERROR" envDefault:"false"`
}

func LoadModerator() (ModeratorConfig, error) {
	var cfg ModeratorConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.PoolCapacity < 1 || cfg.PoolCapacity > 9999 {
		return cfg, fmt.Errorf("POOL_CAPACITY must be within 1..9999, got %d", cfg.PoolCapacity)
	}
	if cfg.DisconnectPolicy != DisconnectAbort {
		return cfg, fmt.Errorf("unsupported DISCONNECT_POLICY %q", cfg.DisconnectPolicy)
	}
	return cfg, nil
}
