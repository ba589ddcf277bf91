package rules

import (
	"math"
	"time"
)

const (
	BaseFoodPoints   = 10
	SpeedBonusFactor = 2

	InitialSpeed = 5.0
	MaxSpeed     = 15.0
	SpeedStep    = 0.5
	// SpeedUpEvery is how many food items are eaten between speed increases.
	SpeedUpEvery = 5
)

// Progress is the per-game score and pace.
// Speed is in ticks per second and stays within [InitialSpeed, MaxSpeed].
type Progress struct {
	Score     int
	Speed     float64
	FoodEaten int
}

// NewProgress returns the values every game starts from.
func NewProgress() Progress {
	return Progress{Speed: InitialSpeed}
}

// OnFoodEaten scores one food item. snakeLength is measured after growth.
//
// The speed bonus uses the speed in force when the food was eaten, before any
// increase this call applies.
func (p *Progress) OnFoodEaten(snakeLength int) {
	p.Score += BaseFoodPoints + snakeLength + int(math.Floor(p.Speed))*SpeedBonusFactor
	p.FoodEaten++
	if p.FoodEaten%SpeedUpEvery == 0 {
		p.Speed = clampSpeed(p.Speed + SpeedStep)
	}
}

// Interval is the wall-clock time between ticks at the current speed.
func (p Progress) Interval() time.Duration {
	return time.Duration(float64(time.Second) / clampSpeed(p.Speed))
}

func clampSpeed(v float64) float64 {
	// MaxSpeed itself is reachable: 5 + 20*0.5 lands exactly on 15.
	if v >= MaxSpeed {
		return MaxSpeed
	}
	if v < InitialSpeed {
		return InitialSpeed
	}
	return v
}
