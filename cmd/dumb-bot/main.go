package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resistance-moderator/internal/config"
	"resistance-moderator/internal/logging"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer logging.Close()
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := transport.DialIRC(ctx, transport.IRCOptions{Addr: cfg.Addr, Nick: cfg.Nick, TLS: cfg.TLS})
	if err != nil {
		log.Fatal().Err(err).Msg("dial irc failed")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	b := newBot(rand.New(rand.NewSource(seed)))

	go play(ctx, conn, cfg.Lobby, b)
	if err := conn.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("irc stopped")
	}
}

func play(ctx context.Context, conn *transport.IRC, lobby string, b *bot) {
	for {
		var ev transport.Event
		select {
		case <-ctx.Done():
			return
		case ev = <-conn.Events():
		}
		switch ev.Kind {
		case transport.EventConnected:
			_ = conn.Join(lobby)
		case transport.EventPing:
			_ = conn.Pong(ev.Token)
		case transport.EventMessage:
			if ev.Channel == conn.Nick() {
				if channel, ok := b.invitation(ev.Text()); ok {
					_ = conn.Join(channel)
				}
				continue
			}
			act := b.respond(ev.Channel, ev.Text())
			if act.reply != "" {
				_ = conn.Say(ev.Channel, act.reply)
			}
			if act.part != "" {
				_ = conn.Part(act.part)
			}
		}
	}
}
