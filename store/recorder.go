package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
	"github.com/brensch/snek5110/session"
)

// Recorder turns session events into replay rows and writes finished games to
// parquet from a single background goroutine.
//
// Each Session gets its own Listener; the Recorder itself is shared.
type Recorder struct {
	outDir        string
	source        string
	gamesPerFlush int
	log           *slog.Logger

	// sendMu guards closed and sends on games.
	sendMu sync.Mutex
	closed bool
	games  chan []ReplayRow
	done   chan struct{}

	mu    sync.Mutex
	files []string
	err   error
}

// NewRecorder starts the writer loop. Files are flushed every gamesPerFlush
// finished games and on Close.
func NewRecorder(outDir, source string, gamesPerFlush int, log *slog.Logger) *Recorder {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		outDir:        outDir,
		source:        source,
		gamesPerFlush: gamesPerFlush,
		log:           log,
		games:         make(chan []ReplayRow, gamesPerFlush*2),
		done:          make(chan struct{}),
	}
	go r.writerLoop()
	return r
}

// Listener returns a Tape that records one Session's games.
// It must only be attached to a single Session, and closed when the host stops
// driving that Session so an unfinished game is still written.
func (r *Recorder) Listener() *Tape {
	return &Tape{rec: r}
}

// Close flushes buffered games and waits for the writer. It returns the last
// write error, if any.
func (r *Recorder) Close() error {
	r.sendMu.Lock()
	if !r.closed {
		r.closed = true
		close(r.games)
	}
	r.sendMu.Unlock()

	<-r.done
	return r.lastErr()
}

// Files lists the replay files written so far.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

func (r *Recorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) submit(rows []ReplayRow) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.closed {
		r.log.Warn("replay dropped after close", "game_id", rows[0].GameID, "rows", len(rows))
		return
	}
	r.games <- rows
}

func (r *Recorder) writerLoop() {
	defer close(r.done)

	pendingRows := make([]ReplayRow, 0, 1024)
	pendingGames := 0

	flush := func(reason string) {
		if pendingGames == 0 {
			return
		}
		path, err := WriteReplayBatchAtomic(r.outDir, pendingRows)
		r.mu.Lock()
		if err != nil {
			r.err = err
		} else {
			r.files = append(r.files, path)
		}
		r.mu.Unlock()
		if err != nil {
			r.log.Error("replay flush failed", "reason", reason, "games", pendingGames, "rows", len(pendingRows), "err", err)
		} else {
			r.log.Info("replay flush ok", "reason", reason, "path", path, "games", pendingGames, "rows", len(pendingRows))
		}
		pendingRows = pendingRows[:0]
		pendingGames = 0
	}

	for rows := range r.games {
		pendingRows = append(pendingRows, rows...)
		pendingGames++
		if pendingGames >= r.gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
}

// TruncatedEvent tags the row appended when a game is cut short.
const TruncatedEvent = "truncated"

// Tape buffers the rows of the game in progress. Finished games are submitted
// on the collided event; Close submits whatever is still buffered.
type Tape struct {
	rec    *Recorder
	rows   []ReplayRow
	closed bool
}

func (g *Tape) OnEvent(e session.Event) {
	if g.closed {
		return
	}
	switch e.Kind {
	case session.EventStarted:
		g.rows = make([]ReplayRow, 0, 256)
		g.rows = append(g.rows, g.row(e))
	case session.EventTicked, session.EventAte:
		if g.rows != nil {
			g.rows = append(g.rows, g.row(e))
		}
	case session.EventCollided:
		if g.rows == nil {
			return
		}
		g.rows = append(g.rows, g.row(e))
		g.rec.submit(g.rows)
		g.rows = nil
	}
}

// Close submits an unfinished game with a trailing truncated row and detaches
// the tape. Later events are ignored. Safe to call more than once.
func (g *Tape) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if len(g.rows) == 0 {
		return nil
	}
	last := g.rows[len(g.rows)-1]
	last.Event = TruncatedEvent
	last.Cause = ""
	last.CreatedNs = time.Now().UnixNano()
	g.rows = append(g.rows, last)
	g.rec.submit(g.rows)
	g.rows = nil
	return nil
}

func (g *Tape) row(e session.Event) ReplayRow {
	s := e.Snapshot
	row := ReplayRow{
		GameID:    s.GameID,
		Tick:      s.Tick,
		Width:     game.Width,
		Height:    game.Height,
		BodyX:     make([]int32, len(s.Snake)),
		BodyY:     make([]int32, len(s.Snake)),
		Direction: s.Direction.String(),
		Event:     e.Kind.String(),
		Score:     int32(s.Score),
		HighScore: int32(s.HighScore),
		Speed:     s.Speed,
		FoodEaten: int32(s.FoodEaten),
		Source:    g.rec.source,
		CreatedNs: time.Now().UnixNano(),
	}
	for i, p := range s.Snake {
		row.BodyX[i] = int32(p.X)
		row.BodyY[i] = int32(p.Y)
	}
	if s.Food != nil {
		row.HasFood = true
		row.FoodX = int32(s.Food.X)
		row.FoodY = int32(s.Food.Y)
	}
	if e.Kind == session.EventCollided && e.Cause != rules.NoCollision {
		row.Cause = e.Cause.String()
	}
	return row
}
