// Package rules advances a snake one cell per tick and scores food.
package rules

import (
	"github.com/brensch/snek5110/game"
)

// Result is the outcome of a single tick.
type Result int

const (
	Continue Result = iota
	Ate
	Collided
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Ate:
		return "ate"
	case Collided:
		return "collided"
	default:
		return "unknown"
	}
}

// Cause says what a Collided tick ran into.
type Cause int

const (
	NoCollision Cause = iota
	Wall
	Self
)

func (c Cause) String() string {
	switch c {
	case Wall:
		return "wall"
	case Self:
		return "self"
	default:
		return "none"
	}
}

// Tick moves the snake one cell. food may be nil when no food is on the field.
//
// The buffered turn is committed first. Wall and self collisions are checked
// before the food, so a move that would both collide and eat reports Collided.
// On Collided the body is left untouched. Tick never places new food or scores;
// callers act on the returned Result.
func Tick(s *game.Snake, food *game.Point) Result {
	r, _ := TickDetailed(s, food)
	return r
}

// TickDetailed is Tick plus the collision cause.
func TickDetailed(s *game.Snake, food *game.Point) (Result, Cause) {
	s.Direction = s.NextDirection
	newHead := s.Head().Add(s.Direction)

	if !game.InBounds(newHead) {
		return Collided, Wall
	}
	// The current head is about to be vacated; every other segment, the tail
	// included, still counts.
	for _, p := range s.Body[1:] {
		if p == newHead {
			return Collided, Self
		}
	}

	s.Body = append(s.Body, game.Point{})
	copy(s.Body[1:], s.Body[:len(s.Body)-1])
	s.Body[0] = newHead

	if food != nil && newHead == *food {
		return Ate, NoCollision
	}
	s.Body = s.Body[:len(s.Body)-1]
	return Continue, NoCollision
}

// LegalMoves returns the directions the snake may take next tick without
// colliding, in game.Directions order. Reversals are never included.
func LegalMoves(s *game.Snake) []game.Direction {
	if s == nil || len(s.Body) == 0 {
		return nil
	}
	moves := make([]game.Direction, 0, 3)
	for _, d := range game.Directions {
		if d == s.Direction.Opposite() {
			continue
		}
		if isSafe(s, s.Head().Add(d)) {
			moves = append(moves, d)
		}
	}
	return moves
}

func isSafe(s *game.Snake, p game.Point) bool {
	// 1. Check Bounds
	if !game.InBounds(p) {
		return false
	}
	// 2. Check body. Conservative: the tail counts, matching Tick.
	for _, bp := range s.Body[1:] {
		if bp == p {
			return false
		}
	}
	return true
}
