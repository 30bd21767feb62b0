// Package autopilot decouples the game loop from slow command-suggestion
// providers.
//
// The game loop hands a Request to a single long-lived Worker through a
// synchronous hand-off and later picks up the Response from a one-slot
// queue. Neither side ever shares game state; only the two queues cross
// the goroutine boundary.
package autopilot

import (
	"context"
	"fmt"

	"github.com/brensch/snekpilot/game"
)

// Input is what a provider sees of the board.
type Input struct {
	SnakeDirection game.Direction `json:"snake_direction"`
	SnakeHeadX     int32          `json:"snake_head_x"`
	SnakeHeadY     int32          `json:"snake_head_y"`
	FoodX          int32          `json:"food_x"`
	FoodY          int32          `json:"food_y"`
}

// NewInput builds the provider input from the current head, direction and food.
func NewInput(head game.Point, dir game.Direction, food game.Point) Input {
	return Input{
		SnakeDirection: dir,
		SnakeHeadX:     head.X,
		SnakeHeadY:     head.Y,
		FoodX:          food.X,
		FoodY:          food.Y,
	}
}

// Step is one instruction of a batch: move Command, Repeat times.
type Step struct {
	Command game.Direction `json:"command"`
	Repeat  int            `json:"repeat"`
}

// Batch is a provider reply.
type Batch struct {
	Commands []Step `json:"commands"`
}

// MaxRepeat bounds a single step's repeat count. No board a terminal can
// show is this wide.
const MaxRepeat = 1 << 12

// MaxCommands bounds the number of steps in one batch.
const MaxCommands = 256

// Validate rejects empty or oversized batches and repeats outside
// [1, MaxRepeat].
func (b Batch) Validate() error {
	if len(b.Commands) == 0 {
		return fmt.Errorf("batch has no commands")
	}
	if len(b.Commands) > MaxCommands {
		return fmt.Errorf("batch has %d commands, limit is %d", len(b.Commands), MaxCommands)
	}
	for i, s := range b.Commands {
		if s.Repeat <= 0 {
			return fmt.Errorf("command %d (%s) has non-positive repeat %d", i, s.Command, s.Repeat)
		}
		if s.Repeat > MaxRepeat {
			return fmt.Errorf("command %d (%s) repeat %d exceeds %d", i, s.Command, s.Repeat, MaxRepeat)
		}
	}
	return nil
}

// Steps returns the total number of single moves in the batch. Repeats are
// clamped to [0, MaxRepeat] so the sum cannot overflow.
func (b Batch) Steps() int {
	n := 0
	for _, s := range b.Commands {
		n += min(max(s.Repeat, 0), MaxRepeat)
	}
	return n
}

// Flatten expands each {direction, repeat} pair into repeat copies of the
// direction, preserving order. Repeats above MaxRepeat are truncated, so an
// unvalidated batch still yields a bounded slice.
func Flatten(b Batch) []game.Direction {
	out := make([]game.Direction, 0, b.Steps())
	for _, s := range b.Commands {
		for i := 0; i < min(s.Repeat, MaxRepeat); i++ {
			out = append(out, s.Command)
		}
	}
	return out
}

// Provider suggests a batch of commands for the given board input.
type Provider interface {
	SuggestCommands(ctx context.Context, in Input) (Batch, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, in Input) (Batch, error)

func (f ProviderFunc) SuggestCommands(ctx context.Context, in Input) (Batch, error) {
	return f(ctx, in)
}

// Request carries one suggestion request from the game loop to the worker.
// Seq ties the eventual Response back to the generation that asked.
type Request struct {
	Seq      uint64
	Provider game.ProviderID
	Input    Input
}

// Response is the worker's answer to exactly one Request.
type Response struct {
	Seq   uint64
	Batch Batch
	Err   error
}
