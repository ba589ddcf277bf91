package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/brensch/snek5110/autopilot"
	"github.com/brensch/snek5110/config"
	"github.com/brensch/snek5110/logging"
	"github.com/brensch/snek5110/session"
	"github.com/brensch/snek5110/store"
	"github.com/brensch/snek5110/tui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Load("snake", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// The TUI owns the terminal, so logs always go to a file.
	logPath := cfg.LogPath
	if logPath == "" {
		logPath = "snake.log"
	}
	log, closeLog, err := logging.Open(logPath, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("snake exited", "err", err)
		fmt.Fprintln(os.Stderr, err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	hs, closeHS, err := store.OpenHighScore(cfg.HighScorePath)
	if err != nil {
		return err
	}
	defer closeHS()

	opts := session.Options{Store: hs, Logger: log}
	if cfg.Seed != 0 {
		opts.Rand = rand.New(rand.NewSource(cfg.Seed))
	}
	if cfg.ReplayDir != "" {
		rec := store.NewRecorder(cfg.ReplayDir, "tui", cfg.FlushGames, log)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Warn("replay flush failed", "err", err)
			}
		}()
		tape := rec.Listener()
		// Runs before rec.Close so a game quit mid-play is still recorded.
		defer tape.Close()
		opts.Listeners = append(opts.Listeners, tape)
	}
	s := session.New(opts)

	var pilot autopilot.Policy
	if cfg.Autopilot {
		p, closePilot, err := autopilot.Load(cfg.ModelPath)
		if err != nil {
			log.Warn("model unavailable, using greedy autopilot", "model", cfg.ModelPath, "err", err)
			p, closePilot = autopilot.Greedy{}, func() error { return nil }
		}
		defer closePilot()
		pilot = p
	}

	log.Info("snake starting", "high_score", s.HighScore(), "autopilot", cfg.Autopilot, "fps", cfg.FPS)
	if _, err := tea.NewProgram(tui.New(s, pilot, cfg.Frame()), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	log.Info("snake stopped", "high_score", s.HighScore())
	return nil
}
