// Package game defines the core value types for the terminal snake game.
//
// Coordinates follow the usual math convention: (0,0) is bottom-left and
// Up increases Y. Bounds are owned by the board, never by a Point.
package game

import (
	"fmt"
	"math/rand"
)

// Point is a board coordinate.
type Point struct {
	X int32
	Y int32
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add returns p shifted by the unit offset of d.
func (p Point) Add(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// In reports whether p lies within [0,width) x [0,height).
func (p Point) In(width, height int32) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}

// RandomPoint returns a uniformly random point in [0,width) x [0,height).
// Width and height must be positive.
func RandomPoint(rng *rand.Rand, width, height int32) Point {
	return Point{X: rng.Int31n(width), Y: rng.Int31n(height)}
}

// CenterPoint returns the middle cell of a width x height board.
func CenterPoint(width, height int32) Point {
	return Point{X: width / 2, Y: height / 2}
}

// State is the lifecycle of a single run.
type State uint8

const (
	NotStarted State = iota
	Running
	GameOver
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// UIMode controls the renderer layout. It is orthogonal to State and only
// changes on explicit user commands.
type UIMode uint8

const (
	UIGame UIMode = iota
	UIGameWithDebug
	UISelectingMode
)

func (m UIMode) String() string {
	switch m {
	case UIGame:
		return "game"
	case UIGameWithDebug:
		return "game_with_debug"
	case UISelectingMode:
		return "selecting_mode"
	default:
		return "unknown"
	}
}

// ProviderID names a configured command-suggestion provider.
type ProviderID string

// Mode selects the command source: the keyboard, or an autopilot provider.
type Mode struct {
	Autopilot bool
	Provider  ProviderID
}

// PlayerMode is the keyboard-driven mode.
var PlayerMode = Mode{}

// AutopilotMode returns the mode driven by provider id.
func AutopilotMode(id ProviderID) Mode {
	return Mode{Autopilot: true, Provider: id}
}

func (m Mode) String() string {
	if !m.Autopilot {
		return "player"
	}
	return "autopilot(" + string(m.Provider) + ")"
}
