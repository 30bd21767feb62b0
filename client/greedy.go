package client

import (
	"context"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/game"
)

// Greedy is a local provider that walks straight to the food: the vertical
// leg first, then the horizontal one. It needs no configuration and never
// fails.
type Greedy struct{}

func (Greedy) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	return Plan(in), nil
}

// Plan returns the greedy route from the head to the food. When the first
// leg would reverse the snake the legs swap; when the food is straight
// behind, the route sidesteps first.
//
// An input that omits snake_direction decodes as game.Up, so a caller that
// leaves it out gets the route for an upward snake: food below and to the
// side is reached horizontally first. Legs longer than autopilot.MaxRepeat
// are cut short and the next request finishes the route.
func Plan(in autopilot.Input) autopilot.Batch {
	var legs []autopilot.Step
	if s, ok := leg(in.FoodY-in.SnakeHeadY, game.Up, game.Down); ok {
		legs = append(legs, s)
	}
	if s, ok := leg(in.FoodX-in.SnakeHeadX, game.Right, game.Left); ok {
		legs = append(legs, s)
	}
	if len(legs) == 0 {
		return autopilot.Batch{Commands: []autopilot.Step{{Command: in.SnakeDirection, Repeat: 1}}}
	}

	reverse := in.SnakeDirection.Opposite()
	if legs[0].Command == reverse {
		if len(legs) == 2 {
			legs[0], legs[1] = legs[1], legs[0]
		} else {
			side, back := game.Right, game.Left
			if legs[0].Command == game.Left || legs[0].Command == game.Right {
				side, back = game.Up, game.Down
			}
			legs = []autopilot.Step{
				{Command: side, Repeat: 1},
				legs[0],
				{Command: back, Repeat: 1},
			}
		}
	}
	return autopilot.Batch{Commands: legs}
}

func leg(delta int32, pos, neg game.Direction) (autopilot.Step, bool) {
	switch {
	case delta > 0:
		return autopilot.Step{Command: pos, Repeat: min(int(delta), autopilot.MaxRepeat)}, true
	case delta < 0:
		return autopilot.Step{Command: neg, Repeat: min(-int(delta), autopilot.MaxRepeat)}, true
	default:
		return autopilot.Step{}, false
	}
}
