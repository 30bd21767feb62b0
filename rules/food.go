package rules

import (
	"fmt"
	"math/rand"

	"github.com/brensch/snekpilot/game"
)

// FoodPolicy controls where relocated food may land.
type FoodPolicy uint8

const (
	// FoodAvoidBody picks uniformly among cells the snake does not occupy,
	// falling back to FoodLoose when the board is full.
	FoodAvoidBody FoodPolicy = iota
	// FoodLoose picks any in-bounds cell, possibly under the snake.
	FoodLoose
)

func (p FoodPolicy) String() string {
	switch p {
	case FoodAvoidBody:
		return "avoid-body"
	case FoodLoose:
		return "loose"
	default:
		return fmt.Sprintf("food_policy(%d)", uint8(p))
	}
}

func ParseFoodPolicy(s string) (FoodPolicy, error) {
	switch s {
	case "avoid-body", "":
		return FoodAvoidBody, nil
	case "loose":
		return FoodLoose, nil
	}
	return 0, fmt.Errorf("unknown food policy %q", s)
}

// RelocateFood returns a new food cell inside [0,width) x [0,height).
// Width and height must be positive.
func RelocateFood(rng *rand.Rand, policy FoodPolicy, s *game.Snake, width, height int32) game.Point {
	if policy == FoodLoose || s == nil {
		return game.RandomPoint(rng, width, height)
	}

	occupied := make(map[game.Point]bool, s.Len())
	for _, p := range s.Body() {
		if p.In(width, height) {
			occupied[p] = true
		}
	}

	free := int(width*height) - len(occupied)
	if free <= 0 {
		return game.RandomPoint(rng, width, height)
	}

	// Pick the n-th free cell in row-major order.
	n := rng.Intn(free)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			p := game.Point{X: x, Y: y}
			if occupied[p] {
				continue
			}
			if n == 0 {
				return p
			}
			n--
		}
	}
	return game.RandomPoint(rng, width, height)
}
