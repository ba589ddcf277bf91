// Package session runs the Snake state machine and its timed tick loop.
//
// A Session is owned by a single host loop and is not safe for concurrent use.
// Hosts feed it Actions through Handle and wall-clock time through Advance, and
// read Snapshots back for rendering.
package session

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
	"github.com/google/uuid"
)

// HighScoreStore persists the best score across sessions.
type HighScoreStore interface {
	Load() (int, error)
	Save(score int) error
}

// Renderer draws a frame. It must not retain the Snapshot's slices across calls
// if it mutates them.
type Renderer interface {
	Render(Snapshot)
}

// InputSource delivers normalized actions.
type InputSource interface {
	Actions() <-chan Action
}

// Listener observes state changes.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

type Options struct {
	// Rand drives food placement. Nil seeds from the current time.
	Rand *rand.Rand
	// Store persists the high score. Nil keeps it in memory only.
	Store HighScoreStore
	// Logger defaults to slog.Default().
	Logger    *slog.Logger
	Listeners []Listener
	// NewGameID names each game. Defaults to a random UUID.
	NewGameID func() string
}

type Session struct {
	phase     Phase
	snake     *game.Snake
	food      *game.Point
	progress  rules.Progress
	highScore int

	// sinceTick is the wall-clock time accumulated toward the next tick.
	sinceTick time.Duration
	tick      int64
	gameID    string

	rng       *rand.Rand
	store     HighScoreStore
	log       *slog.Logger
	listeners []Listener
	newGameID func() string
}

// New creates a Session in the MENU phase and loads the high score.
// A failing store leaves the high score at 0.
func New(opts Options) *Session {
	s := &Session{
		phase:     Menu,
		progress:  rules.NewProgress(),
		rng:       opts.Rand,
		store:     opts.Store,
		log:       opts.Logger,
		listeners: opts.Listeners,
		newGameID: opts.NewGameID,
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.newGameID == nil {
		s.newGameID = func() string { return uuid.NewString() }
	}

	if s.store != nil {
		hs, err := s.store.Load()
		switch {
		case err != nil:
			s.log.Warn("high score unavailable, starting from 0", "err", err)
		case hs > 0:
			s.highScore = hs
		}
	}
	return s
}

// AddListener registers l for subsequent events.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) HighScore() int { return s.highScore }

// Interval is the tick period at the current speed.
func (s *Session) Interval() time.Duration { return s.progress.Interval() }

// Handle applies one input action. Actions that mean nothing in the current
// phase are ignored.
func (s *Session) Handle(a Action) {
	switch s.phase {
	case Menu:
		if a == Confirm {
			s.start()
		}
	case Playing:
		if d, ok := a.direction(); ok {
			s.snake.RequestTurn(d)
			return
		}
		if a == PauseToggle {
			s.phase = Paused
			s.emit(EventPaused, rules.NoCollision)
		}
	case Paused:
		if a == PauseToggle {
			s.phase = Playing
			s.emit(EventResumed, rules.NoCollision)
		}
	case GameOver:
		if a == Confirm {
			s.phase = Menu
			s.snake = nil
			s.food = nil
			s.emit(EventMenu, rules.NoCollision)
		}
	}
}

// Advance feeds elapsed wall-clock time to the tick timer. Outside PLAYING it
// does nothing, so paused time never turns into catch-up ticks. At most one
// tick runs per call; the accumulator restarts from zero after it.
// It reports whether a tick ran.
func (s *Session) Advance(elapsed time.Duration) bool {
	if s.phase != Playing || elapsed <= 0 {
		return false
	}
	s.sinceTick += elapsed
	if s.sinceTick < s.progress.Interval() {
		return false
	}
	s.sinceTick = 0
	s.step()
	return true
}

// Step runs one tick immediately, ignoring the timer. Headless hosts that do
// not model wall-clock time use it. It returns rules.Continue outside PLAYING.
func (s *Session) Step() rules.Result {
	if s.phase != Playing {
		return rules.Continue
	}
	s.sinceTick = 0
	return s.step()
}

func (s *Session) start() {
	s.progress = rules.NewProgress()
	s.snake = game.NewSnake()
	s.food = nil
	s.sinceTick = 0
	s.tick = 0
	s.gameID = s.newGameID()
	s.phase = Playing

	if err := s.placeFood(); err != nil {
		// Unreachable on a 21x12 field with a 3-cell snake.
		s.log.Error("food placement failed at start", "game_id", s.gameID, "err", err)
	}
	s.log.Debug("game started", "game_id", s.gameID, "high_score", s.highScore)
	s.emit(EventStarted, rules.NoCollision)
}

func (s *Session) step() rules.Result {
	s.tick++
	res, cause := rules.TickDetailed(s.snake, s.food)

	switch res {
	case rules.Collided:
		s.endGame(cause)
	case rules.Ate:
		s.progress.OnFoodEaten(s.snake.Len())
		s.food = nil
		if err := s.placeFood(); err != nil {
			s.log.Error("food placement failed", "game_id", s.gameID, "len", s.snake.Len(), "err", err)
			s.emit(EventAte, rules.NoCollision)
			s.endGame(rules.NoCollision)
			return rules.Collided
		}
		s.emit(EventAte, rules.NoCollision)
	default:
		s.emit(EventTicked, rules.NoCollision)
	}
	return res
}

func (s *Session) placeFood() error {
	p, err := game.SpawnFood(s.rng, s.snake.Body)
	if err != nil {
		return fmt.Errorf("spawn food: %w", err)
	}
	s.food = &p
	return nil
}

func (s *Session) endGame(cause rules.Cause) {
	s.phase = GameOver
	beaten := s.progress.Score > s.highScore
	if beaten {
		s.highScore = s.progress.Score
		if s.store != nil {
			if err := s.store.Save(s.highScore); err != nil {
				s.log.Warn("high score not saved", "score", s.highScore, "err", err)
			}
		}
	}
	s.log.Debug("game over", "game_id", s.gameID, "score", s.progress.Score, "cause", cause.String(), "ticks", s.tick)
	if beaten {
		s.emit(EventHighScore, cause)
	}
	s.emit(EventCollided, cause)
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		GameID:    s.gameID,
		Phase:     s.phase,
		Score:     s.progress.Score,
		HighScore: s.highScore,
		Speed:     s.progress.Speed,
		FoodEaten: s.progress.FoodEaten,
		Tick:      s.tick,
	}
	if s.snake != nil {
		snap.Snake = make([]game.Point, len(s.snake.Body))
		copy(snap.Snake, s.snake.Body)
		snap.Direction = s.snake.Direction
	}
	if s.food != nil {
		f := *s.food
		snap.Food = &f
	}
	return snap
}

func (s *Session) emit(kind EventKind, cause rules.Cause) {
	if len(s.listeners) == 0 {
		return
	}
	ev := Event{Kind: kind, Cause: cause, Snapshot: s.Snapshot()}
	for _, l := range s.listeners {
		l.OnEvent(ev)
	}
}
