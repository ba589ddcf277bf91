package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/brensch/snek5110/config"
	"github.com/brensch/snek5110/logging"
	"github.com/brensch/snek5110/replay"
)

func main() {
	cfg := config.Default()
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	config.RegisterLog(fs, &cfg)
	config.RegisterReplayDir(fs, &cfg)
	limit := fs.Int("limit", 10, "Games to list")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	gameID := fs.String("game", "", "Dump every tick of one game instead of the leaderboard")
	_ = fs.Parse(os.Args[1:])

	log, closeLog, err := logging.Open(cfg.LogPath, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(log)

	// Extra positional arguments are additional replay roots.
	roots := append([]string{cfg.ReplayDir}, fs.Args()...)
	if err := run(context.Background(), roots, *limit, *asJSON, *gameID, log); err != nil {
		log.Error("leaderboard failed", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, roots []string, limit int, asJSON bool, gameID string, log *slog.Logger) error {
	files, err := replay.FindReplayFiles(roots)
	if err != nil {
		return fmt.Errorf("find replays: %w", err)
	}
	log.Debug("replay files found", "roots", roots, "files", len(files))

	db, err := replay.Open(files)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if gameID != "" {
		ticks, err := replay.GameTicks(ctx, db, gameID)
		if err != nil {
			return err
		}
		return enc.Encode(ticks)
	}

	games, err := replay.TopGames(ctx, db, limit)
	if err != nil {
		return err
	}
	stats, err := replay.Summarize(ctx, db)
	if err != nil {
		return err
	}
	if asJSON {
		return enc.Encode(struct {
			Stats replay.Stats         `json:"stats"`
			Games []replay.GameSummary `json:"games"`
		}{stats, games})
	}
	fmt.Printf("%d games, %d ticks, best %d, mean %.1f, wall %d, self %d, cut short %d\n\n",
		stats.Games, stats.Ticks, stats.BestScore, stats.MeanScore, stats.WallDeath, stats.SelfDeath, stats.Truncated)
	fmt.Print(replay.FormatTable(games))
	return nil
}
