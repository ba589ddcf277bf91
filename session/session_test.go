package session

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
)

type memStore struct {
	score   int
	loadErr error
	saveErr error
	saves   []int
}

func (m *memStore) Load() (int, error) { return m.score, m.loadErr }

func (m *memStore) Save(score int) error {
	m.saves = append(m.saves, score)
	if m.saveErr != nil {
		return m.saveErr
	}
	m.score = score
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, store HighScoreStore) *Session {
	t.Helper()
	n := 0
	return New(Options{
		Rand:   rand.New(rand.NewSource(1)),
		Store:  store,
		Logger: quietLogger(),
		NewGameID: func() string {
			n++
			return "game-" + string(rune('0'+n))
		},
	})
}

// placeFood puts the food at p, bypassing the spawner.
func placeFood(s *Session, p game.Point) {
	s.food = &p
}

func TestNew_StartsInMenu(t *testing.T) {
	s := newTestSession(t, nil)
	if s.Phase() != Menu {
		t.Fatalf("phase=%v want=%v", s.Phase(), Menu)
	}
	snap := s.Snapshot()
	if snap.Snake != nil || snap.Food != nil {
		t.Fatalf("menu snapshot has snake/food: %+v", snap)
	}
}

func TestConfirm_StartsFreshGame(t *testing.T) {
	s := newTestSession(t, nil)
	s.Handle(Confirm)

	snap := s.Snapshot()
	if snap.Phase != Playing {
		t.Fatalf("phase=%v want=%v", snap.Phase, Playing)
	}
	if snap.Score != 0 || snap.Speed != 5 || snap.FoodEaten != 0 {
		t.Fatalf("score=%d speed=%v food=%d want 0/5/0", snap.Score, snap.Speed, snap.FoodEaten)
	}
	if len(snap.Snake) != 3 {
		t.Fatalf("snake len=%d want=3", len(snap.Snake))
	}
	if snap.Food == nil {
		t.Fatalf("no food after start")
	}
	for _, p := range snap.Snake {
		if p == *snap.Food {
			t.Fatalf("food on snake at %v", p)
		}
	}
}

func TestMenu_IgnoresNonConfirm(t *testing.T) {
	s := newTestSession(t, nil)
	for _, a := range []Action{TurnUp, TurnLeft, PauseToggle, NoAction, Action(99)} {
		s.Handle(a)
		if s.Phase() != Menu {
			t.Fatalf("action %v moved phase to %v", a, s.Phase())
		}
	}
}

func TestPauseResume_LeavesStateUnchanged(t *testing.T) {
	s := newTestSession(t, nil)
	s.Handle(Confirm)
	s.Advance(150 * time.Millisecond)
	before := s.Snapshot()

	s.Handle(PauseToggle)
	if s.Phase() != Paused {
		t.Fatalf("phase=%v want=%v", s.Phase(), Paused)
	}
	for i := 0; i < 10; i++ {
		if s.Advance(time.Second) {
			t.Fatalf("ticked while paused")
		}
	}
	s.Handle(TurnUp)
	s.Handle(Confirm)
	s.Handle(PauseToggle)
	if s.Phase() != Playing {
		t.Fatalf("phase=%v want=%v", s.Phase(), Playing)
	}

	after := s.Snapshot()
	if after.Score != before.Score || after.Tick != before.Tick || *after.Food != *before.Food {
		t.Fatalf("state changed across pause: before=%+v after=%+v", before, after)
	}
	for i := range before.Snake {
		if before.Snake[i] != after.Snake[i] {
			t.Fatalf("snake[%d]=%v want=%v", i, after.Snake[i], before.Snake[i])
		}
	}
	if s.snake.NextDirection != game.Right {
		t.Fatalf("turn buffered while paused: next=%v", s.snake.NextDirection)
	}

	// The 150ms accumulated before the pause still counts: 50ms more ticks.
	if !s.Advance(50 * time.Millisecond) {
		t.Fatalf("expected tick after resume")
	}
}

func TestAdvance_TicksOncePerInterval(t *testing.T) {
	s := newTestSession(t, nil)
	s.Handle(Confirm)
	placeFood(s, game.Point{X: 0, Y: 0})

	if s.Advance(199 * time.Millisecond) {
		t.Fatalf("ticked before interval")
	}
	if !s.Advance(time.Millisecond) {
		t.Fatalf("did not tick at interval")
	}
	if got := s.Snapshot().Snake[0]; got != (game.Point{X: 11, Y: 6}) {
		t.Fatalf("head=%v want=(11,6)", got)
	}
	// A long frame still yields a single tick.
	if !s.Advance(5 * time.Second) {
		t.Fatalf("did not tick after long frame")
	}
	if got := s.Snapshot().Tick; got != 2 {
		t.Fatalf("tick=%d want=2", got)
	}
	if s.Advance(0) {
		t.Fatalf("zero elapsed ticked")
	}
}

func TestEatFood_ScoresAndRespawns(t *testing.T) {
	s := newTestSession(t, nil)
	var events []EventKind
	s.AddListener(ListenerFunc(func(e Event) { events = append(events, e.Kind) }))
	s.Handle(Confirm)
	placeFood(s, game.Point{X: 11, Y: 6})

	if res := s.Step(); res != rules.Ate {
		t.Fatalf("result=%v want=%v", res, rules.Ate)
	}
	snap := s.Snapshot()
	want := []game.Point{{X: 11, Y: 6}, {X: 10, Y: 6}, {X: 9, Y: 6}, {X: 8, Y: 6}}
	for i := range want {
		if snap.Snake[i] != want[i] {
			t.Fatalf("snake[%d]=%v want=%v", i, snap.Snake[i], want[i])
		}
	}
	// 10 + 4 + 5*2
	if snap.Score != 24 || snap.FoodEaten != 1 {
		t.Fatalf("score=%d food=%d want 24/1", snap.Score, snap.FoodEaten)
	}
	if snap.Food == nil {
		t.Fatalf("food not respawned")
	}
	for _, p := range snap.Snake {
		if p == *snap.Food {
			t.Fatalf("respawned food on snake at %v", p)
		}
	}
	if len(events) != 2 || events[0] != EventStarted || events[1] != EventAte {
		t.Fatalf("events=%v want=[started ate]", events)
	}
}

func TestFifthFood_RaisesSpeed(t *testing.T) {
	s := newTestSession(t, nil)
	s.Handle(Confirm)
	// Walk right along row 6, food always one cell ahead.
	for i := 0; i < 5; i++ {
		placeFood(s, s.snake.Head().Add(game.Right))
		if res := s.Step(); res != rules.Ate {
			t.Fatalf("food %d result=%v", i+1, res)
		}
	}
	snap := s.Snapshot()
	if snap.FoodEaten != 5 || snap.Speed != 5.5 {
		t.Fatalf("food=%d speed=%v want 5/5.5", snap.FoodEaten, snap.Speed)
	}
	if got, want := s.Interval(), (rules.Progress{Speed: 5.5}).Interval(); got != want || got >= time.Second/5 {
		t.Fatalf("interval=%v", got)
	}
}

func TestCollision_SetsHighScoreAndPersists(t *testing.T) {
	store := &memStore{score: 10}
	s := newTestSession(t, store)
	if s.HighScore() != 10 {
		t.Fatalf("loaded high=%d want=10", s.HighScore())
	}
	s.Handle(Confirm)
	placeFood(s, game.Point{X: 11, Y: 6})
	s.Step()
	// Head now at (11,6); run into the right wall.
	placeFood(s, game.Point{X: 0, Y: 0})
	for s.Phase() == Playing {
		s.Step()
	}
	if s.Phase() != GameOver {
		t.Fatalf("phase=%v want=%v", s.Phase(), GameOver)
	}
	if s.HighScore() != 24 {
		t.Fatalf("high=%d want=24", s.HighScore())
	}
	if len(store.saves) != 1 || store.saves[0] != 24 {
		t.Fatalf("saves=%v want=[24]", store.saves)
	}

	// Frozen in GAME_OVER.
	before := s.Snapshot()
	s.Advance(time.Second)
	s.Handle(TurnUp)
	if s.Snapshot().Tick != before.Tick {
		t.Fatalf("ticked in game over")
	}

	s.Handle(Confirm)
	if s.Phase() != Menu {
		t.Fatalf("phase=%v want=%v", s.Phase(), Menu)
	}
}

func TestHighScore_NeverDecreases(t *testing.T) {
	store := &memStore{}
	s := newTestSession(t, store)
	best := 0
	for g := 0; g < 5; g++ {
		s.Handle(Confirm)
		// Eat a different amount each game, then hit the wall.
		for i := 0; i < (g*3)%4; i++ {
			placeFood(s, s.snake.Head().Add(game.Right))
			s.Step()
		}
		for s.Phase() == Playing {
			s.Step()
		}
		if s.HighScore() < best {
			t.Fatalf("game %d: high=%d dropped below %d", g, s.HighScore(), best)
		}
		best = s.HighScore()
		s.Handle(Confirm)
	}
	if store.score != best {
		t.Fatalf("stored=%d want=%d", store.score, best)
	}
}

func TestStoreFailures_Degrade(t *testing.T) {
	store := &memStore{score: 99, loadErr: errors.New("disk gone"), saveErr: errors.New("disk gone")}
	s := newTestSession(t, store)
	if s.HighScore() != 0 {
		t.Fatalf("high=%d want=0 on load failure", s.HighScore())
	}
	s.Handle(Confirm)
	placeFood(s, s.snake.Head().Add(game.Right))
	s.Step()
	placeFood(s, game.Point{X: 0, Y: 0})
	for s.Phase() == Playing {
		s.Step()
	}
	if s.Phase() != GameOver || s.HighScore() != 24 {
		t.Fatalf("phase=%v high=%d want game over/24", s.Phase(), s.HighScore())
	}
}

func TestRestart_ResetsProgress(t *testing.T) {
	s := newTestSession(t, nil)
	s.Handle(Confirm)
	first := s.Snapshot().GameID
	placeFood(s, s.snake.Head().Add(game.Right))
	s.Step()
	for s.Phase() == Playing {
		s.Step()
	}
	s.Handle(Confirm)
	s.Handle(Confirm)

	snap := s.Snapshot()
	if snap.Phase != Playing || snap.Score != 0 || snap.Speed != 5 || snap.FoodEaten != 0 || snap.Tick != 0 {
		t.Fatalf("restart snapshot=%+v", snap)
	}
	if snap.GameID == first {
		t.Fatalf("game id reused: %s", first)
	}
}

func TestInvariants_RandomPlay(t *testing.T) {
	s := newTestSession(t, nil)
	rng := rand.New(rand.NewSource(2024))
	actions := []Action{TurnUp, TurnDown, TurnLeft, TurnRight, NoAction, NoAction}

	for i := 0; i < 5000; i++ {
		if s.Phase() != Playing {
			s.Handle(Confirm)
			continue
		}
		s.Handle(actions[rng.Intn(len(actions))])
		s.Step()

		snap := s.Snapshot()
		seen := make(map[game.Point]bool, len(snap.Snake))
		for _, p := range snap.Snake {
			if seen[p] {
				t.Fatalf("step %d: duplicate segment %v", i, p)
			}
			seen[p] = true
		}
		if snap.Phase == Playing && snap.Food != nil && seen[*snap.Food] {
			t.Fatalf("step %d: food on snake at %v", i, *snap.Food)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{TurnUp, TurnDown, TurnLeft, TurnRight, PauseToggle, Confirm} {
		got, ok := ParseAction(a.String())
		if !ok || got != a {
			t.Fatalf("ParseAction(%q)=%v,%v want=%v", a.String(), got, ok, a)
		}
	}
	if _, ok := ParseAction("jump"); ok {
		t.Fatalf("unknown action parsed")
	}
}

// fullBoardSnake snakes through every cell except (0,0), head at (1,0)
// moving left onto the last free cell.
func fullBoardSnake() *game.Snake {
	body := make([]game.Point, 0, game.Cells-1)
	for x := 1; x < game.Width; x++ {
		body = append(body, game.Point{X: x, Y: 0})
	}
	for y := 1; y < game.Height; y++ {
		for i := 0; i < game.Width; i++ {
			x := i
			if y%2 == 1 {
				x = game.Width - 1 - i
			}
			body = append(body, game.Point{X: x, Y: y})
		}
	}
	return &game.Snake{Body: body, Direction: game.Left, NextDirection: game.Left}
}

func TestBoardFull_EndsGame(t *testing.T) {
	store := &memStore{}
	s := newTestSession(t, store)
	var kinds []EventKind
	s.AddListener(ListenerFunc(func(e Event) { kinds = append(kinds, e.Kind) }))
	s.Handle(Confirm)

	s.snake = fullBoardSnake()
	if s.snake.Len() != game.Cells-1 {
		t.Fatalf("len=%d want=%d", s.snake.Len(), game.Cells-1)
	}
	placeFood(s, game.Point{X: 0, Y: 0})

	if res := s.Step(); res != rules.Collided {
		t.Fatalf("result=%v want=%v", res, rules.Collided)
	}
	snap := s.Snapshot()
	if snap.Phase != GameOver || len(snap.Snake) != game.Cells || snap.Food != nil {
		t.Fatalf("phase=%v len=%d food=%v", snap.Phase, len(snap.Snake), snap.Food)
	}
	// 10 + 252 + 5*2
	if snap.Score != 272 || s.HighScore() != 272 {
		t.Fatalf("score=%d high=%d want=272", snap.Score, s.HighScore())
	}
	if len(store.saves) != 1 || store.saves[0] != 272 {
		t.Fatalf("saves=%v want=[272]", store.saves)
	}
	if n := len(kinds); n < 3 || kinds[n-3] != EventAte || kinds[n-2] != EventHighScore || kinds[n-1] != EventCollided {
		t.Fatalf("events=%v", kinds)
	}
}

func TestGameOverEvents_SeeTerminalPhase(t *testing.T) {
	s := newTestSession(t, &memStore{})
	seen := map[EventKind]Phase{}
	s.AddListener(ListenerFunc(func(e Event) { seen[e.Kind] = e.Snapshot.Phase }))
	s.Handle(Confirm)
	placeFood(s, s.snake.Head().Add(game.Right))
	s.Step()
	placeFood(s, game.Point{X: 0, Y: 0})
	for s.Phase() == Playing {
		s.Step()
	}
	for _, k := range []EventKind{EventHighScore, EventCollided} {
		p, ok := seen[k]
		if !ok || p != GameOver {
			t.Fatalf("%v: phase=%v seen=%v want=%v", k, p, ok, GameOver)
		}
	}
}
