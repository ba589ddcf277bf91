package tui

import (
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/brensch/snek5110/autopilot"
	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/session"
	tea "github.com/charmbracelet/bubbletea"
)

func newSession(seed int64) *session.Session {
	return session.New(session.Options{
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyAction(t *testing.T) {
	cases := map[string]session.Action{
		"up": session.TurnUp, "w": session.TurnUp, "k": session.TurnUp,
		"down": session.TurnDown, "s": session.TurnDown,
		"left": session.TurnLeft, "a": session.TurnLeft,
		"right": session.TurnRight, "l": session.TurnRight,
		"p": session.PauseToggle, " ": session.PauseToggle, "esc": session.PauseToggle,
		"enter": session.Confirm,
	}
	for k, want := range cases {
		got, ok := KeyAction(k)
		if !ok || got != want {
			t.Fatalf("key %q: got=%v want=%v", k, got, want)
		}
	}
	if _, ok := KeyAction("x"); ok {
		t.Fatalf("unmapped key accepted")
	}
}

func TestModel_KeysAndFrames(t *testing.T) {
	s := newSession(1)
	m := New(s, nil, 10*time.Millisecond)

	m, _ = update(t, m, key("enter"))
	if s.Phase() != session.Playing {
		t.Fatalf("phase=%v want=%v", s.Phase(), session.Playing)
	}
	m, _ = update(t, m, key("up"))

	t0 := time.Unix(100, 0)
	m, cmd := update(t, m, frameMsg(t0))
	if cmd == nil {
		t.Fatalf("frame did not schedule the next frame")
	}
	if got := s.Snapshot().Tick; got != 0 {
		t.Fatalf("first frame ticked: tick=%d", got)
	}
	m, _ = update(t, m, frameMsg(t0.Add(100*time.Millisecond)))
	if got := s.Snapshot().Tick; got != 0 {
		t.Fatalf("tick=%d before interval", got)
	}
	m, _ = update(t, m, frameMsg(t0.Add(200*time.Millisecond)))
	snap := s.Snapshot()
	if snap.Tick != 1 || snap.Direction != game.Up {
		t.Fatalf("tick=%d dir=%v want tick=1 dir=up", snap.Tick, snap.Direction)
	}

	_, cmd = update(t, m, key("q"))
	if cmd == nil {
		t.Fatalf("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q returned %T", cmd())
	}
}

func TestModel_AutopilotRestarts(t *testing.T) {
	s := newSession(2)
	m := New(s, autopilot.Greedy{}, time.Millisecond)

	now := time.Unix(0, 0)
	m, _ = update(t, m, frameMsg(now))
	if s.Phase() != session.Playing {
		t.Fatalf("autopilot did not start: phase=%v", s.Phase())
	}
	first := s.Snapshot().GameID

	// Play in 200ms frames until a game ends and the next one starts.
	for i := 0; i < 20000 && s.Snapshot().GameID == first; i++ {
		now = now.Add(200 * time.Millisecond)
		m, _ = update(t, m, frameMsg(now))
	}
	if s.Snapshot().GameID == first {
		t.Fatalf("autopilot never restarted")
	}
	if !strings.Contains(m.View(), "[autopilot]") {
		t.Fatalf("demo marker missing:\n%s", m.View())
	}
}
