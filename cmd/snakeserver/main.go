package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/snek5110/config"
	"github.com/brensch/snek5110/logging"
	"github.com/brensch/snek5110/server"
	"github.com/brensch/snek5110/session"
	"github.com/brensch/snek5110/store"
)

func main() {
	cfg, err := config.Load("snakeserver", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, closeLog, err := logging.Open(cfg.LogPath, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	hs, closeHS, err := store.OpenHighScore(cfg.HighScorePath)
	if err != nil {
		return err
	}
	defer closeHS()

	opts := server.Options{Store: hs, Seed: cfg.Seed, Frame: cfg.Frame(), Logger: log}
	if cfg.ReplayDir != "" {
		rec := store.NewRecorder(cfg.ReplayDir, "server", cfg.FlushGames, log)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Warn("replay flush failed", "err", err)
			}
		}()
		opts.Listeners = func() []session.Listener {
			return []session.Listener{rec.Listener()}
		}
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(opts).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen, "replay_dir", cfg.ReplayDir, "high_score_path", cfg.HighScorePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; they end when
	// the base context is cancelled.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
