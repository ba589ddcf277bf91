package autopilot

import (
	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/session"
)

// Planes in an encoded board, each Height x Width, row-major.
const (
	PlaneHead = iota
	PlaneBody
	PlaneFood
	NumPlanes
)

// InputSize is the float count of one encoded board.
const InputSize = NumPlanes * game.Height * game.Width

// Encode writes snap into a [NumPlanes][Height][Width] tensor.
// The body plane fades from 1 at the neck toward 0 at the tail so the model
// can tell which cells free up first.
func Encode(snap session.Snapshot) []float32 {
	out := make([]float32, InputSize)
	EncodeInto(out, snap)
	return out
}

// EncodeInto is Encode without the allocation. dst must hold InputSize values.
func EncodeInto(dst []float32, snap session.Snapshot) {
	clear(dst[:InputSize])
	n := len(snap.Snake)
	for i, p := range snap.Snake {
		if !game.InBounds(p) {
			continue
		}
		if i == 0 {
			dst[index(PlaneHead, p)] = 1
			continue
		}
		dst[index(PlaneBody, p)] = float32(n-i) / float32(n)
	}
	if snap.Food != nil && game.InBounds(*snap.Food) {
		dst[index(PlaneFood, *snap.Food)] = 1
	}
}

func index(plane int, p game.Point) int {
	return plane*game.Height*game.Width + p.Y*game.Width + p.X
}
