// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"resistance-moderator/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu     sync.Mutex
	writer io.Writer = os.Stdout
	file   *rotatingFile
)

// Init installs the global logger described by cfg. Console output is
// mirrored into cfg.File when set.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return err
		}
		level = parsed
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	raw := io.Writer(os.Stdout)
	if cfg.File != "" {
		w, err := newRotatingFile(cfg.File, cfg.MaxMB, cfg.Backups)
		if err != nil {
			return err
		}
		file = w
		out = zerolog.MultiLevelWriter(out, w)
		raw = io.MultiWriter(os.Stdout, w)
	}
	writer = raw

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer is the raw destination for other loggers, such as the HTTP
// request logger, so every line ends up next to the application log.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return writer
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}
