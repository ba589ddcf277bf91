// Package store persists high scores and game replays.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// ReplaySchema tags replay files in their key/value metadata.
const ReplaySchema = "snake_replay_v1"

// ReplayRow is one tick of one game.
//
// Body cells are head-first. Food is absent when HasFood is false.
// Event is the session event that produced the row: started, ticked, ate or
// collided. Cause is set on the collided row only.
type ReplayRow struct {
	GameID    string  `parquet:"game_id,dict"`
	Tick      int64   `parquet:"tick"`
	Width     int32   `parquet:"width"`
	Height    int32   `parquet:"height"`
	BodyX     []int32 `parquet:"body_x"`
	BodyY     []int32 `parquet:"body_y"`
	HasFood   bool    `parquet:"has_food"`
	FoodX     int32   `parquet:"food_x"`
	FoodY     int32   `parquet:"food_y"`
	Direction string  `parquet:"direction,dict"`
	Event     string  `parquet:"event,dict"`
	Cause     string  `parquet:"cause,dict"`
	Score     int32   `parquet:"score"`
	HighScore int32   `parquet:"high_score"`
	Speed     float64 `parquet:"speed"`
	FoodEaten int32   `parquet:"food_eaten"`
	Source    string  `parquet:"source,dict"`
	CreatedNs int64   `parquet:"created_ns"`
}

// WriteReplayBatchAtomic writes rows into outDir/tmp and then renames the file
// into outDir, so readers never observe a partially written replay.
// The returned path is the final parquet file path.
func WriteReplayBatchAtomic(outDir string, rows []ReplayRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no replay rows")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("replay_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", ReplaySchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadReplayFile loads every row of a replay file.
func ReadReplayFile(path string) ([]ReplayRow, error) {
	rows, err := parquet.ReadFile[ReplayRow](path)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", path, err)
	}
	return rows, nil
}
