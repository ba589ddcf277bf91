package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/snek5110/autopilot"
	"github.com/brensch/snek5110/config"
	"github.com/brensch/snek5110/logging"
	"github.com/brensch/snek5110/session"
	"github.com/brensch/snek5110/store"
)

type totals struct {
	games     atomic.Int64
	truncated atomic.Int64
	ticks     atomic.Int64
	score     atomic.Int64
	best      atomic.Int64
}

func (t *totals) record(ticks int, snap session.Snapshot) {
	t.games.Add(1)
	t.ticks.Add(int64(ticks))
	t.score.Add(int64(snap.Score))
	if snap.Phase != session.GameOver {
		t.truncated.Add(1)
	}
	for {
		cur := t.best.Load()
		if int64(snap.Score) <= cur || t.best.CompareAndSwap(cur, int64(snap.Score)) {
			return
		}
	}
}

func main() {
	cfg, err := config.Load("headless", os.Args[1:])
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
		log.Error("headless run failed", "err", err)
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

	pilot, closePilot, err := autopilot.Load(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("load autopilot: %w", err)
	}
	defer closePilot()

	var rec *store.Recorder
	if cfg.ReplayDir != "" {
		rec = store.NewRecorder(cfg.ReplayDir, "headless", cfg.FlushGames, log)
	}

	log.Info("headless starting",
		"games", cfg.Games,
		"workers", cfg.Workers,
		"max_ticks", cfg.MaxTicks,
		"model", cfg.ModelPath,
		"replay_dir", cfg.ReplayDir,
	)

	var (
		next atomic.Int64
		t    totals
		wg   sync.WaitGroup
	)
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for ctx.Err() == nil {
				i := next.Add(1) - 1
				if i >= int64(cfg.Games) {
					return
				}
				opts := session.Options{Store: hs, Logger: log.With("worker", worker)}
				if cfg.Seed != 0 {
					opts.Rand = rand.New(rand.NewSource(cfg.Seed + i))
				}
				var tape *store.Tape
				if rec != nil {
					tape = rec.Listener()
					opts.Listeners = []session.Listener{tape}
				}
				s := session.New(opts)
				ticks := autopilot.Play(s, pilot, cfg.MaxTicks)
				if tape != nil {
					// Writes games stopped by max-ticks; finished games are already queued.
					_ = tape.Close()
				}
				snap := s.Snapshot()
				t.record(ticks, snap)
				log.Debug("game finished", "game_id", snap.GameID, "score", snap.Score, "ticks", ticks, "phase", snap.Phase.String())
			}
		}(w)
	}
	wg.Wait()

	if rec != nil {
		if err := rec.Close(); err != nil {
			return fmt.Errorf("flush replays: %w", err)
		}
	}

	games := t.games.Load()
	mean := 0.0
	if games > 0 {
		mean = float64(t.score.Load()) / float64(games)
	}
	log.Info("headless finished",
		"games", games,
		"truncated", t.truncated.Load(),
		"ticks", t.ticks.Load(),
		"best_score", t.best.Load(),
		"mean_score", mean,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"cancelled", ctx.Err() != nil,
	)
	return nil
}
