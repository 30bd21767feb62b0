package inference

import (
	"math"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/game"
)

const (
	// InputSize is dx, dy, then a one-hot of the current direction.
	InputSize  = 6
	PolicySize = 4
	ValueSize  = 1
)

// DefaultScale normalises head-to-food offsets. Offsets beyond it clamp to
// +-1.
const DefaultScale = 64

// Featurize writes the network input for in into dst, which must hold
// InputSize floats.
func Featurize(in autopilot.Input, scale float32, dst []float32) {
	if scale <= 0 {
		scale = DefaultScale
	}
	dst[0] = clamp(float32(in.FoodX-in.SnakeHeadX) / scale)
	dst[1] = clamp(float32(in.FoodY-in.SnakeHeadY) / scale)
	for i, d := range game.Directions {
		if d == in.SnakeDirection {
			dst[2+i] = 1
		} else {
			dst[2+i] = 0
		}
	}
}

func clamp(v float32) float32 {
	return max(-1, min(1, v))
}

// Pick returns the highest scoring direction in policy, which is ordered
// like game.Directions. The reverse of current is never chosen.
func Pick(policy []float32, current game.Direction) game.Direction {
	best := current
	bestScore := float32(math.Inf(-1))
	for i, d := range game.Directions {
		if i >= len(policy) || d == current.Opposite() || math.IsNaN(float64(policy[i])) {
			continue
		}
		if policy[i] > bestScore {
			best, bestScore = d, policy[i]
		}
	}
	return best
}

// Run turns a picked direction into a batch. The network only looks one
// step ahead, so the batch repeats the move while it still closes the gap
// on that axis.
func Run(in autopilot.Input, d game.Direction) autopilot.Batch {
	n := int32(1)
	switch d {
	case game.Up:
		n = in.FoodY - in.SnakeHeadY
	case game.Down:
		n = in.SnakeHeadY - in.FoodY
	case game.Right:
		n = in.FoodX - in.SnakeHeadX
	case game.Left:
		n = in.SnakeHeadX - in.FoodX
	}
	if n < 1 {
		n = 1
	}
	return autopilot.Batch{Commands: []autopilot.Step{{Command: d, Repeat: min(int(n), autopilot.MaxRepeat)}}}
}
