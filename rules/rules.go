// Package rules holds the snake game's state machine and the collision and
// food rules it applies each tick.
package rules

import (
	"github.com/brensch/snekpilot/game"
)

// Board is the render boundary as the core sees it: only its size in cells.
type Board interface {
	Size() (width, height int32)
}

// Collided reports whether the head left [0,width) x [0,height) or landed
// on any other segment of the body.
func Collided(s *game.Snake, width, height int32) bool {
	if !s.Head().In(width, height) {
		return true
	}
	return s.HitsSelf()
}
