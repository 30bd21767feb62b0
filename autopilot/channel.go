package autopilot

import (
	"context"
	"errors"

	"github.com/brensch/snekpilot/game"
)

var (
	// ErrInFlight is returned by TrySend while an earlier request has not
	// been answered yet.
	ErrInFlight = errors.New("autopilot: request already in flight")
	// ErrWorkerBusy is returned by TrySend when the worker is not waiting
	// for work (backing off, or not started).
	ErrWorkerBusy = errors.New("autopilot: worker not ready")
)

// Channel is the pair of hand-off queues between the game loop and the
// worker.
//
// Requests use an unbuffered channel, so a send only succeeds when the
// worker is parked on its receive. Responses use a one-slot buffer. The
// in-flight flag and sequence numbers belong to the game loop; TrySend,
// TryReceive and Invalidate must only be called from there.
type Channel struct {
	requests  chan Request
	responses chan Response

	seq        uint64
	staleUpTo  uint64
	inFlight   bool
	inFlightID uint64
}

func NewChannel() *Channel {
	return &Channel{
		requests:  make(chan Request),
		responses: make(chan Response, 1),
	}
}

// TrySend offers a request to the worker without blocking. It returns the
// sequence number assigned to the request.
func (c *Channel) TrySend(provider game.ProviderID, in Input) (uint64, error) {
	if c.inFlight {
		return 0, ErrInFlight
	}
	req := Request{Seq: c.seq + 1, Provider: provider, Input: in}
	select {
	case c.requests <- req:
		c.seq = req.Seq
		c.inFlight = true
		c.inFlightID = req.Seq
		return req.Seq, nil
	default:
		return 0, ErrWorkerBusy
	}
}

// TryReceive polls for the answer to the outstanding request. Answers to
// requests issued before the last Invalidate are swallowed: ok is false
// for them, but the in-flight slot is still released.
func (c *Channel) TryReceive() (resp Response, ok bool) {
	select {
	case resp = <-c.responses:
	default:
		return Response{}, false
	}
	if resp.Seq == c.inFlightID {
		c.inFlight = false
	}
	if resp.Seq <= c.staleUpTo {
		return Response{}, false
	}
	return resp, true
}

// Invalidate marks every request issued so far as stale. Used when the
// board changes underneath an outstanding request (new game, mode switch).
func (c *Channel) Invalidate() {
	c.staleUpTo = c.seq
}

// InFlight reports whether a request is awaiting its response.
func (c *Channel) InFlight() bool {
	return c.inFlight
}

// Requests is the worker's receive side.
func (c *Channel) Requests() <-chan Request {
	return c.requests
}

// Respond delivers a response. The slot is always free because at most one
// request is outstanding, but the send still honours ctx.
func (c *Channel) Respond(ctx context.Context, resp Response) error {
	select {
	case c.responses <- resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
