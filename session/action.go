package session

import "github.com/brensch/snek5110/game"

// Action is a normalized input event. Device details (keys, swipes, buttons)
// are mapped to Actions by the adapter before they reach a Session.
type Action int

const (
	NoAction Action = iota
	TurnUp
	TurnDown
	TurnLeft
	TurnRight
	PauseToggle
	Confirm
)

var actionNames = map[Action]string{
	TurnUp:      "turn-up",
	TurnDown:    "turn-down",
	TurnLeft:    "turn-left",
	TurnRight:   "turn-right",
	PauseToggle: "pause-toggle",
	Confirm:     "confirm",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "none"
}

// ParseAction maps a wire name such as "turn-up" to its Action.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return NoAction, false
}

// direction returns the move a turn action asks for.
func (a Action) direction() (game.Direction, bool) {
	switch a {
	case TurnUp:
		return game.Up, true
	case TurnDown:
		return game.Down, true
	case TurnLeft:
		return game.Left, true
	case TurnRight:
		return game.Right, true
	default:
		return game.Direction{}, false
	}
}

// ActionFor returns the turn action for a direction.
func ActionFor(d game.Direction) Action {
	switch d {
	case game.Up:
		return TurnUp
	case game.Down:
		return TurnDown
	case game.Left:
		return TurnLeft
	case game.Right:
		return TurnRight
	default:
		return NoAction
	}
}
