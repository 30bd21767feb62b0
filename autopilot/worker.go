package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brensch/snekpilot/game"
)

var (
	// ErrRateLimited is matched (via errors.Is) by provider errors that
	// should trigger the longer rate-limit backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoProvider means the selected provider cannot serve as
	// configured: it is unknown, or its credentials are missing or
	// rejected. It triggers the long configuration backoff.
	ErrNoProvider = errors.New("provider not configured")
)

// Config holds worker backoff delays.
type Config struct {
	ErrorBackoff     time.Duration
	RateLimitBackoff time.Duration
	ConfigBackoff    time.Duration
}

// DefaultConfig returns the delays used by the game.
func DefaultConfig() Config {
	return Config{
		ErrorBackoff:     1 * time.Second,
		RateLimitBackoff: 10 * time.Second,
		ConfigBackoff:    30 * time.Second,
	}
}

// Exchange is one completed provider round trip, as seen by a Recorder.
type Exchange struct {
	Seq      uint64
	Provider game.ProviderID
	Input    Input
	Batch    Batch
	Err      error
	Started  time.Time
	Latency  time.Duration
}

// Recorder receives every exchange. It is called from the worker goroutine only.
type Recorder interface {
	Record(Exchange) error
}

// Worker serves requests from a Channel one at a time.
// It owns its providers exclusively; nothing else may call them.
type Worker struct {
	cfg       Config
	ch        *Channel
	providers map[game.ProviderID]Provider
	logger    *slog.Logger
	recorder  Recorder
}

func NewWorker(cfg Config, ch *Channel, providers map[game.ProviderID]Provider, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:       cfg,
		ch:        ch,
		providers: providers,
		logger:    logger,
	}
}

// SetRecorder installs an exchange recorder. Call before Run.
func (w *Worker) SetRecorder(r Recorder) {
	w.recorder = r
}

// Run blocks serving requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		var req Request
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req = <-w.ch.Requests():
		}

		resp := w.serve(ctx, req)
		if err := w.ch.Respond(ctx, resp); err != nil {
			return err
		}
		if resp.Err == nil {
			continue
		}

		delay := w.backoff(resp.Err)
		w.logger.Warn("autopilot request failed",
			"provider", string(req.Provider),
			"seq", req.Seq,
			"err", resp.Err,
			"backoff", delay,
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (w *Worker) serve(ctx context.Context, req Request) Response {
	started := time.Now()
	resp := Response{Seq: req.Seq}

	provider, ok := w.providers[req.Provider]
	if !ok || provider == nil {
		resp.Err = fmt.Errorf("%w: %q", ErrNoProvider, req.Provider)
	} else {
		batch, err := provider.SuggestCommands(ctx, req.Input)
		if err == nil {
			err = batch.Validate()
		}
		if err != nil {
			resp.Err = err
		} else {
			resp.Batch = batch
			w.logger.Debug("autopilot batch",
				"provider", string(req.Provider),
				"seq", req.Seq,
				"commands", len(batch.Commands),
				"steps", batch.Steps(),
				"latency", time.Since(started),
			)
		}
	}

	if w.recorder != nil {
		ex := Exchange{
			Seq:      req.Seq,
			Provider: req.Provider,
			Input:    req.Input,
			Batch:    resp.Batch,
			Err:      resp.Err,
			Started:  started,
			Latency:  time.Since(started),
		}
		if err := w.recorder.Record(ex); err != nil {
			w.logger.Error("trace record failed", "err", err)
		}
	}
	return resp
}

func (w *Worker) backoff(err error) time.Duration {
	switch {
	case errors.Is(err, ErrNoProvider):
		return w.cfg.ConfigBackoff
	case errors.Is(err, ErrRateLimited):
		return w.cfg.RateLimitBackoff
	default:
		return w.cfg.ErrorBackoff
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
