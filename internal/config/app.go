package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	IRC       IRCConfig
	Moderator ModeratorConfig
	Status    StatusConfig
	Log       LogConfig
}

// LoadDotEnv reads .env files into the environment when they exist.
// Variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	ircCfg, err := LoadIRC()
	if err != nil {
		return AppConfig{}, err
	}
	modCfg, err := LoadModerator()
	if err != nil {
		return AppConfig{}, err
	}
	statusCfg, err := LoadStatus()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		IRC:       ircCfg,
		Moderator: modCfg,
		Status:    statusCfg,
		Log:       logCfg,
	}, nil
}
