// Package autopilot steers a Session without a human at the keys.
package autopilot

import (
	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
	"github.com/brensch/snek5110/session"
)

// Policy picks the direction for the next tick. ok is false when the policy
// has no opinion, in which case the snake keeps its heading.
type Policy interface {
	Next(snap session.Snapshot) (d game.Direction, ok bool)
}

// Greedy heads straight for the food, avoiding only immediate death.
type Greedy struct{}

func (Greedy) Next(snap session.Snapshot) (game.Direction, bool) {
	s := snakeFrom(snap)
	if s == nil {
		return game.Direction{}, false
	}
	moves := rules.LegalMoves(s)
	if len(moves) == 0 {
		return game.Direction{}, false
	}
	if snap.Food == nil {
		for _, m := range moves {
			if m == s.Direction {
				return m, true
			}
		}
		return moves[0], true
	}

	// Shorter distance wins; on ties keep the current heading.
	best := moves[0]
	bestDist := distance(s.Head().Add(best), *snap.Food)
	for _, m := range moves[1:] {
		d := distance(s.Head().Add(m), *snap.Food)
		if d < bestDist || (d == bestDist && m == s.Direction) {
			best, bestDist = m, d
		}
	}
	return best, true
}

// Decide converts the policy's choice into the action to send, if any.
// Keeping the current heading needs no action.
func Decide(p Policy, snap session.Snapshot) (session.Action, bool) {
	if snap.Phase != session.Playing {
		return session.NoAction, false
	}
	d, ok := p.Next(snap)
	if !ok || d == snap.Direction {
		return session.NoAction, false
	}
	a := session.ActionFor(d)
	return a, a != session.NoAction
}

// Play starts a game on s if none is running and steps it under p until the
// game ends or maxTicks ticks have run (maxTicks <= 0 means no cap).
// It returns the number of ticks played.
func Play(s *session.Session, p Policy, maxTicks int) int {
	if s.Phase() == session.GameOver {
		s.Handle(session.Confirm)
	}
	if s.Phase() == session.Menu {
		s.Handle(session.Confirm)
	}
	ticks := 0
	for s.Phase() == session.Playing && (maxTicks <= 0 || ticks < maxTicks) {
		if a, ok := Decide(p, s.Snapshot()); ok {
			s.Handle(a)
		}
		s.Step()
		ticks++
	}
	return ticks
}

func snakeFrom(snap session.Snapshot) *game.Snake {
	if len(snap.Snake) == 0 {
		return nil
	}
	body := make([]game.Point, len(snap.Snake))
	copy(body, snap.Snake)
	dir := snap.Direction
	if !dir.Valid() {
		dir = game.Right
	}
	return &game.Snake{Body: body, Direction: dir, NextDirection: dir}
}

func distance(a, b game.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
