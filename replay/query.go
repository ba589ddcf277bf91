package replay

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/brensch/snek5110/game"
)

// GameSummary is one finished or truncated game.
type GameSummary struct {
	GameID    string  `json:"game_id"`
	Source    string  `json:"source"`
	Score     int     `json:"score"`
	FoodEaten int     `json:"food_eaten"`
	Ticks     int64   `json:"ticks"`
	MaxSpeed  float64 `json:"max_speed"`
	Length    int     `json:"length"`
	Cause     string  `json:"cause,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
	StartedNs int64   `json:"started_ns"`
	File      string  `json:"file"`
}

// Tick is a single decoded replay row.
type Tick struct {
	Tick      int64        `json:"tick"`
	Event     string       `json:"event"`
	Snake     []game.Point `json:"snake"`
	Food      *game.Point  `json:"food,omitempty"`
	Direction string       `json:"direction"`
	Score     int          `json:"score"`
	Speed     float64      `json:"speed"`
}

// Stats aggregates every recorded game.
type Stats struct {
	Games     int64   `json:"games"`
	Ticks     int64   `json:"ticks"`
	BestScore int     `json:"best_score"`
	MeanScore float64 `json:"mean_score"`
	WallDeath int64   `json:"wall_deaths"`
	SelfDeath int64   `json:"self_deaths"`
	Truncated int64   `json:"truncated"`
}

// TopGames returns up to limit games ordered by final score, best first.
// Ties go to the shorter game.
func TopGames(ctx context.Context, db *sql.DB, limit int) ([]GameSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT
			game_id,
			MIN(source)::VARCHAR AS source,
			MAX(score)::INTEGER AS score,
			MAX(food_eaten)::INTEGER AS food_eaten,
			MAX(tick)::BIGINT AS ticks,
			MAX(speed)::DOUBLE AS max_speed,
			MAX(len(body_x))::INTEGER AS length,
			COALESCE(MAX(CASE WHEN event = 'collided' THEN cause END), '')::VARCHAR AS cause,
			bool_or(event = 'truncated') AS truncated,
			MIN(created_ns)::BIGINT AS started_ns,
			MIN(filename)::VARCHAR AS file
		FROM ticks
		GROUP BY game_id
		ORDER BY score DESC, ticks ASC, game_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top games: %w", err)
	}
	defer rows.Close()

	out := make([]GameSummary, 0, limit)
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.Source, &g.Score, &g.FoodEaten, &g.Ticks, &g.MaxSpeed, &g.Length, &g.Cause, &g.Truncated, &g.StartedNs, &g.File); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GameTicks loads one game in tick order.
func GameTicks(ctx context.Context, db *sql.DB, gameID string) ([]Tick, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tick::BIGINT, event, body_x, body_y, has_food, food_x::INTEGER, food_y::INTEGER, direction, score::INTEGER, speed
		FROM ticks
		WHERE game_id = ?
		ORDER BY tick ASC, created_ns ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query game %s: %w", gameID, err)
	}
	defer rows.Close()

	out := make([]Tick, 0, 256)
	for rows.Next() {
		var (
			t            Tick
			bodyX, bodyY any
			hasFood      bool
			foodX, foodY int
		)
		if err := rows.Scan(&t.Tick, &t.Event, &bodyX, &bodyY, &hasFood, &foodX, &foodY, &t.Direction, &t.Score, &t.Speed); err != nil {
			return nil, err
		}
		t.Snake = zipPoints(asIntSlice(bodyX), asIntSlice(bodyY))
		if hasFood {
			t.Food = &game.Point{X: foodX, Y: foodY}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Summarize computes totals across all games.
func Summarize(ctx context.Context, db *sql.DB) (Stats, error) {
	var s Stats
	err := db.QueryRowContext(ctx, `
		WITH games AS (
			SELECT
				game_id,
				MAX(score) AS score,
				MAX(tick) AS ticks,
				MAX(CASE WHEN event = 'collided' THEN cause END) AS cause,
				bool_or(event = 'truncated') AS truncated
			FROM ticks
			GROUP BY game_id
		)
		SELECT
			COUNT(*)::BIGINT,
			COALESCE(SUM(ticks), 0)::BIGINT,
			COALESCE(MAX(score), 0)::INTEGER,
			COALESCE(AVG(score), 0)::DOUBLE,
			COUNT(*) FILTER (WHERE cause = 'wall')::BIGINT,
			COUNT(*) FILTER (WHERE cause = 'self')::BIGINT,
			COUNT(*) FILTER (WHERE truncated)::BIGINT
		FROM games`).Scan(&s.Games, &s.Ticks, &s.BestScore, &s.MeanScore, &s.WallDeath, &s.SelfDeath, &s.Truncated)
	if err != nil {
		return Stats{}, fmt.Errorf("summarize replays: %w", err)
	}
	return s, nil
}

func zipPoints(xs, ys []int) []game.Point {
	n := min(len(xs), len(ys))
	out := make([]game.Point, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, game.Point{X: xs[i], Y: ys[i]})
	}
	return out
}

// asIntSlice converts the list types the driver hands back for INTEGER[].
func asIntSlice(v any) []int {
	switch vv := v.(type) {
	case nil:
		return nil
	case []int32:
		out := make([]int, len(vv))
		for i, x := range vv {
			out[i] = int(x)
		}
		return out
	case []int64:
		out := make([]int, len(vv))
		for i, x := range vv {
			out[i] = int(x)
		}
		return out
	case []any:
		out := make([]int, 0, len(vv))
		for _, x := range vv {
			switch n := x.(type) {
			case int32:
				out = append(out, int(n))
			case int64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

// FormatTable renders games as an aligned text table.
func FormatTable(games []GameSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-36s %7s %5s %7s %6s %-5s %s\n", "#", "game", "score", "food", "ticks", "speed", "cause", "source")
	for i, g := range games {
		cause := g.Cause
		if g.Truncated {
			cause = "cut"
		}
		fmt.Fprintf(&b, "%-4d %-36s %7d %5d %7d %6.1f %-5s %s\n", i+1, g.GameID, g.Score, g.FoodEaten, g.Ticks, g.MaxSpeed, cause, g.Source)
	}
	return b.String()
}
