// Package command turns keyboard input and autopilot batches into the single
// stream of commands the game state machine consumes.
package command

import (
	"fmt"

	"github.com/brensch/snekpilot/game"
)

// Kind discriminates Command.
type Kind uint8

const (
	None Kind = iota
	Quit
	Turn
	SelectMode
	ChooseMode
	ToggleDebug
	AnyKey
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Quit:
		return "quit"
	case Turn:
		return "turn"
	case SelectMode:
		return "select_mode"
	case ChooseMode:
		return "choose_mode"
	case ToggleDebug:
		return "toggle_debug"
	case AnyKey:
		return "any_key"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is one decoded input. Direction is set for Turn, Choice (0-based
// index into the mode menu) for ChooseMode.
type Command struct {
	Kind      Kind
	Direction game.Direction
	Choice    int
}

func (c Command) String() string {
	switch c.Kind {
	case Turn:
		return "turn(" + c.Direction.String() + ")"
	case ChooseMode:
		return fmt.Sprintf("choose_mode(%d)", c.Choice)
	default:
		return c.Kind.String()
	}
}

func TurnTo(d game.Direction) Command { return Command{Kind: Turn, Direction: d} }
func Choose(i int) Command            { return Command{Kind: ChooseMode, Choice: i} }

var turnKeys = map[string]game.Direction{
	"up": game.Up, "w": game.Up, "k": game.Up,
	"down": game.Down, "s": game.Down, "j": game.Down,
	"left": game.Left, "a": game.Left, "h": game.Left,
	"right": game.Right, "d": game.Right, "l": game.Right,
}

// Decode maps a key name (bubbletea's KeyMsg.String form) to a command.
// While the mode menu is open digits pick an entry and direction keys are
// not turns.
func Decode(key string, selecting bool) Command {
	switch key {
	case "":
		return Command{}
	case "q", "ctrl+c", "esc":
		return Command{Kind: Quit}
	case "m":
		return Command{Kind: SelectMode}
	case "tab", "ctrl+d":
		return Command{Kind: ToggleDebug}
	}
	if selecting {
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			return Choose(int(key[0] - '1'))
		}
		return Command{}
	}
	if d, ok := turnKeys[key]; ok {
		return TurnTo(d)
	}
	return Command{Kind: AnyKey}
}
