package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"resistance-moderator/internal/config"
	"resistance-moderator/internal/logging"
	"resistance-moderator/internal/moderator"
	"resistance-moderator/internal/seat"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var errCompetitionFinished = errors.New("competition_finished")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	rounds, err := parseRounds(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("usage: moderator [rounds]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rounds); err != nil {
		log.Error().Err(err).Msg("moderator stopped")
		logging.Close()
		os.Exit(1)
	}
	log.Info().Msg("moderator stopped")
}

func parseRounds(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("rounds must be a non-negative integer, got %q", args[0])
	}
	return n, nil
}

func newOrchestrator(client transport.Client, cfg config.AppConfig) *moderator.Orchestrator {
	return moderator.NewOrchestrator(client, moderator.Options{
		Lobby:     cfg.IRC.Lobby,
		Capacity:  cfg.Moderator.PoolCapacity,
		QueueSize: cfg.Moderator.QueueSize,
		Seat: seat.Options{
			ReplyTimeout:      cfg.Moderator.ReplyTimeout,
			HumanReplyTimeout: cfg.Moderator.HumanReplyTimeout,
			TeardownTimeout:   cfg.Moderator.TeardownTimeout,
			Reprompt:          cfg.Moderator.Reprompt,
		},
		Output: os.Stdout,
	})
}

func run(ctx context.Context, cfg config.AppConfig, rounds int) error {
	conn, err := transport.DialIRC(ctx, transport.IRCOptions{
		Addr: cfg.IRC.Addr,
		Nick: cfg.IRC.Nick,
		User: cfg.IRC.User,
		Name: cfg.IRC.Name,
		TLS:  cfg.IRC.TLS,
	})
	if err != nil {
		return fmt.Errorf("dial irc: %w", err)
	}
	log.Info().Str("addr", cfg.IRC.Addr).Str("nick", cfg.IRC.Nick).Int("rounds", rounds).Msg("irc connected")

	orch := newOrchestrator(conn, cfg)
	router := moderator.NewRouter(orch, conn, rounds)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := conn.Run(ctx)
		select {
		case <-orch.Finished():
			return errCompetitionFinished
		default:
		}
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("connection closed by server")
		}
		return fmt.Errorf("irc: %w", err)
	})
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return router.Serve(ctx, conn.Events()) })
	g.Go(func() error {
		select {
		case err := <-orch.Fatal():
			return err
		case <-orch.Finished():
			return errCompetitionFinished
		case <-ctx.Done():
			return nil
		}
	})

	if cfg.Status.Addr != "" {
		server := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           newRouter(ctx, orch),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.Status.Addr).Msg("status http listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, errCompetitionFinished) {
		return nil
	}
	return err
}
