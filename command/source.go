package command

import (
	"errors"
	"log/slog"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/game"
)

// Source yields at most one pending direction per call.
type Source interface {
	Next() (game.Direction, bool)
}

// DefaultPlayerBuffer is how many keyboard turns may queue between ticks.
const DefaultPlayerBuffer = 2

// PlayerSource buffers keyboard turns. Extra turns beyond the buffer are dropped.
type PlayerSource struct {
	pending []game.Direction
	limit   int
}

func NewPlayerSource(limit int) *PlayerSource {
	if limit <= 0 {
		limit = DefaultPlayerBuffer
	}
	return &PlayerSource{limit: limit}
}

// Push queues a turn; it reports false when the buffer is full.
func (p *PlayerSource) Push(d game.Direction) bool {
	if len(p.pending) >= p.limit {
		return false
	}
	p.pending = append(p.pending, d)
	return true
}

func (p *PlayerSource) Next() (game.Direction, bool) {
	if len(p.pending) == 0 {
		return 0, false
	}
	d := p.pending[0]
	p.pending = append(p.pending[:0], p.pending[1:]...)
	return d, true
}

func (p *PlayerSource) Clear() { p.pending = p.pending[:0] }

// AutopilotSource is an unbounded FIFO of directions replenished from the
// worker's responses.
type AutopilotSource struct {
	ch       *autopilot.Channel
	logger   *slog.Logger
	provider game.ProviderID

	queue    []game.Direction
	failures int
	lastErr  error
}

func NewAutopilotSource(ch *autopilot.Channel, logger *slog.Logger) *AutopilotSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutopilotSource{ch: ch, logger: logger}
}

// SetProvider switches the provider and drops anything queued for the old one.
func (a *AutopilotSource) SetProvider(id game.ProviderID) {
	a.provider = id
	a.Reset()
}

func (a *AutopilotSource) Provider() game.ProviderID { return a.provider }

// Poll moves a ready response, if any, into the queue. It never blocks.
func (a *AutopilotSource) Poll() {
	resp, ok := a.ch.TryReceive()
	if !ok {
		return
	}
	if resp.Err != nil {
		a.failures++
		a.lastErr = resp.Err
		return
	}
	a.failures = 0
	a.lastErr = nil
	a.Push(resp.Batch)
	a.logger.Debug("autopilot commands queued", "seq", resp.Seq, "queued", len(a.queue))
}

// Push appends a flattened batch.
func (a *AutopilotSource) Push(b autopilot.Batch) {
	a.queue = append(a.queue, autopilot.Flatten(b)...)
}

func (a *AutopilotSource) Next() (game.Direction, bool) {
	if len(a.queue) == 0 {
		return 0, false
	}
	d := a.queue[0]
	a.queue = a.queue[1:]
	if len(a.queue) == 0 {
		a.queue = nil
	}
	return d, true
}

// Request asks the worker for more commands when the queue is empty and
// nothing is outstanding. It reports whether a request was handed off.
func (a *AutopilotSource) Request(in autopilot.Input) bool {
	if len(a.queue) > 0 {
		return false
	}
	seq, err := a.ch.TrySend(a.provider, in)
	if err != nil {
		if !errors.Is(err, autopilot.ErrInFlight) && !errors.Is(err, autopilot.ErrWorkerBusy) {
			a.logger.Error("autopilot request", "err", err)
		}
		return false
	}
	a.logger.Debug("autopilot request sent", "seq", seq, "provider", string(a.provider))
	return true
}

// Reset drops queued commands and orphans any outstanding request.
func (a *AutopilotSource) Reset() {
	a.queue = nil
	a.ch.Invalidate()
}

// Pending returns a copy of the queued directions.
func (a *AutopilotSource) Pending() []game.Direction {
	out := make([]game.Direction, len(a.queue))
	copy(out, a.queue)
	return out
}

func (a *AutopilotSource) Len() int       { return len(a.queue) }
func (a *AutopilotSource) InFlight() bool { return a.ch.InFlight() }
func (a *AutopilotSource) Failures() int  { return a.failures }
func (a *AutopilotSource) LastErr() error { return a.lastErr }
