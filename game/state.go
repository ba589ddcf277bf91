// Package game defines the play field, the snake and food placement for the
// 5110-style Snake simulation.
//
// These types hold no timing or scoring state; the rules package advances a
// Snake and the session package owns the game lifecycle.
package game

// Field dimensions of the original handset LCD grid.
const (
	Width  = 21
	Height = 12
	Cells  = Width * Height
)

// Point is a board coordinate.
// (0,0) is top-left and y grows downward, so "up" is a negative Y step.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by d.
func (p Point) Add(d Direction) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// InBounds reports whether p lies on the 21x12 field.
func InBounds(p Point) bool {
	return p.X >= 0 && p.X < Width && p.Y >= 0 && p.Y < Height
}

// Direction is a unit step along one axis.
type Direction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var (
	Up    = Direction{X: 0, Y: -1}
	Down  = Direction{X: 0, Y: 1}
	Left  = Direction{X: -1, Y: 0}
	Right = Direction{X: 1, Y: 0}
)

// Directions lists the four moves in a stable order.
var Directions = [4]Direction{Up, Down, Left, Right}

// Opposite returns the reversed direction.
func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y}
}

// Valid reports whether d is one of the four unit moves.
func (d Direction) Valid() bool {
	return (d.X == 0) != (d.Y == 0) && d.X >= -1 && d.X <= 1 && d.Y >= -1 && d.Y <= 1
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// StartLength is the body length of a freshly created snake.
const StartLength = 3

type Snake struct {
	// Body is head-first: Body[0] is the head, the last element is the tail.
	Body []Point
	// Direction is the step applied on the current tick.
	Direction Direction
	// NextDirection is the buffered turn committed at the start of the next tick.
	NextDirection Direction
}

// NewSnake returns the starting snake: three cells centred on the field,
// moving right.
func NewSnake() *Snake {
	head := Point{X: Width / 2, Y: Height / 2}
	body := make([]Point, StartLength)
	for i := range body {
		body[i] = Point{X: head.X - i, Y: head.Y}
	}
	return &Snake{Body: body, Direction: Right, NextDirection: Right}
}

// Head returns the head cell. The snake must not be empty.
func (s *Snake) Head() Point {
	return s.Body[0]
}

func (s *Snake) Len() int {
	return len(s.Body)
}

// Occupies reports whether any segment sits on p.
func (s *Snake) Occupies(p Point) bool {
	for _, b := range s.Body {
		if b == p {
			return true
		}
	}
	return false
}

// RequestTurn buffers d for the next tick. The turn is accepted only when it
// moves along the axis the snake is not currently travelling on, which rules
// out 180-degree reversals. A later accepted request replaces an unapplied one.
// Rejected requests are dropped silently; the return value only reports
// whether d was buffered.
func (s *Snake) RequestTurn(d Direction) bool {
	if !d.Valid() || d == s.Direction.Opposite() {
		return false
	}
	if (d.X != 0 && s.Direction.X != 0) || (d.Y != 0 && s.Direction.Y != 0) {
		return false
	}
	s.NextDirection = d
	return true
}

// Clone performs a deep copy of the snake.
func (s *Snake) Clone() *Snake {
	if s == nil {
		return nil
	}
	out := &Snake{Direction: s.Direction, NextDirection: s.NextDirection}
	if len(s.Body) > 0 {
		out.Body = make([]Point, len(s.Body))
		copy(out.Body, s.Body)
	}
	return out
}
