package session

import (
	"fmt"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
)

// Phase is the state machine position.
type Phase int

const (
	Menu Phase = iota
	Playing
	Paused
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Menu:
		return "MENU"
	case Playing:
		return "PLAYING"
	case Paused:
		return "PAUSED"
	case GameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{Menu, Playing, Paused, GameOver} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Snapshot is a read-only copy of everything a renderer needs for one frame.
type Snapshot struct {
	GameID    string         `json:"game_id,omitempty"`
	Phase     Phase          `json:"phase"`
	Snake     []game.Point   `json:"snake"`
	Direction game.Direction `json:"direction"`
	Food      *game.Point    `json:"food,omitempty"`
	Score     int            `json:"score"`
	HighScore int            `json:"high_score"`
	Speed     float64        `json:"speed"`
	FoodEaten int            `json:"food_eaten"`
	Tick      int64          `json:"tick"`
}

// EventKind classifies what a Session just did.
type EventKind int

const (
	EventStarted EventKind = iota
	EventTicked
	EventAte
	EventCollided
	EventPaused
	EventResumed
	EventMenu
	EventHighScore
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventTicked:
		return "ticked"
	case EventAte:
		return "ate"
	case EventCollided:
		return "collided"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventMenu:
		return "menu"
	case EventHighScore:
		return "high_score"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners synchronously, after the state change.
type Event struct {
	Kind     EventKind
	Cause    rules.Cause
	Snapshot Snapshot
}
