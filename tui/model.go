// Package tui plays a Session in the terminal with bubbletea.
package tui

import (
	"time"

	"github.com/brensch/snek5110/autopilot"
	"github.com/brensch/snek5110/session"
	tea "github.com/charmbracelet/bubbletea"
)

// DemoRestartDelay is how long the autopilot leaves the game-over screen up.
const DemoRestartDelay = 2 * time.Second

type frameMsg time.Time

func frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Model is the bubbletea model. The Session is advanced from frame messages
// only, so everything runs on bubbletea's update goroutine.
type Model struct {
	s     *session.Session
	pilot autopilot.Policy
	frame time.Duration

	last     time.Time
	idleFor  time.Duration
	quitting bool
}

// New wraps s. A non-nil pilot steers the snake and restarts finished games.
func New(s *session.Session, pilot autopilot.Policy, frame time.Duration) Model {
	if frame <= 0 {
		frame = session.DefaultFrame
	}
	return Model{s: s, pilot: pilot, frame: frame}
}

func (m Model) Init() tea.Cmd {
	return frameCmd(m.frame)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "q" || key == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if a, ok := KeyAction(key); ok {
			m.s.Handle(a)
		}
		return m, nil
	case frameMsg:
		now := time.Time(msg)
		var elapsed time.Duration
		if !m.last.IsZero() {
			elapsed = now.Sub(m.last)
		}
		m.last = now
		if m.pilot != nil {
			m.drive(elapsed)
		}
		m.s.Advance(elapsed)
		return m, frameCmd(m.frame)
	}
	return m, nil
}

// drive lets the autopilot act for one frame.
func (m *Model) drive(elapsed time.Duration) {
	switch m.s.Phase() {
	case session.Menu:
		m.s.Handle(session.Confirm)
	case session.GameOver:
		m.idleFor += elapsed
		if m.idleFor >= DemoRestartDelay {
			m.idleFor = 0
			m.s.Handle(session.Confirm)
			m.s.Handle(session.Confirm)
		}
	case session.Playing:
		if a, ok := autopilot.Decide(m.pilot, m.s.Snapshot()); ok {
			m.s.Handle(a)
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return Render(m.s.Snapshot(), m.pilot != nil)
}

// KeyAction maps a bubbletea key name to a game action.
func KeyAction(key string) (session.Action, bool) {
	switch key {
	case "up", "w", "k":
		return session.TurnUp, true
	case "down", "s", "j":
		return session.TurnDown, true
	case "left", "a", "h":
		return session.TurnLeft, true
	case "right", "d", "l":
		return session.TurnRight, true
	case "p", " ", "esc":
		return session.PauseToggle, true
	case "enter":
		return session.Confirm, true
	}
	return session.NoAction, false
}
