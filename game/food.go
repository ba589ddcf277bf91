// food.go implements food placement for the single-food Snake field.

package game

import (
	"errors"
	"math/rand"
)

// MaxSpawnAttempts caps rejection sampling before falling back to a scan.
const MaxSpawnAttempts = 4 * Cells

// ErrBoardFull is returned when every cell is occupied and no food can be placed.
var ErrBoardFull = errors.New("game: no free cell for food")

// SpawnFood picks a cell not present in occupied.
//
// Candidates are drawn uniformly over the whole field and rejected while they
// land on an occupied cell. After MaxSpawnAttempts rejections the first free
// cell in row-major order is used instead.
// If rng is nil, a source seeded from the occupied cells is used so the
// placement stays deterministic.
func SpawnFood(rng *rand.Rand, occupied []Point) (Point, error) {
	taken := make(map[Point]struct{}, len(occupied))
	for _, p := range occupied {
		if InBounds(p) {
			taken[p] = struct{}{}
		}
	}
	if len(taken) >= Cells {
		return Point{}, ErrBoardFull
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(deterministicSeed(occupied)))
	}

	for i := 0; i < MaxSpawnAttempts; i++ {
		p := Point{X: rng.Intn(Width), Y: rng.Intn(Height)}
		if _, ok := taken[p]; !ok {
			return p, nil
		}
	}

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			p := Point{X: x, Y: y}
			if _, ok := taken[p]; !ok {
				return p, nil
			}
		}
	}
	return Point{}, ErrBoardFull
}

// deterministicSeed mixes the occupied cells into a non-zero seed.
func deterministicSeed(occupied []Point) int64 {
	x := uint64(len(occupied)) + 0x9E3779B97F4A7C15
	for _, p := range occupied {
		x += uint64(uint32(p.X))<<32 | uint64(uint32(p.Y))
		// splitmix64 finaliser
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	seed := int64(x >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
