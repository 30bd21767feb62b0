package autopilot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/brensch/snekpilot/game"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sendWhenReady retries TrySend until the worker parks on its receive.
func sendWhenReady(t *testing.T, ch *Channel, id game.ProviderID, in Input) uint64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		seq, err := ch.TrySend(id, in)
		if err == nil {
			return seq
		}
		if !errors.Is(err, ErrWorkerBusy) {
			t.Fatalf("TrySend: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker never became ready")
		}
		time.Sleep(time.Millisecond)
	}
}

// receiveWithin polls TryReceive until a delivered response shows up.
func receiveWithin(t *testing.T, ch *Channel, d time.Duration) (Response, bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if resp, ok := ch.TryReceive(); ok {
			return resp, true
		}
		time.Sleep(time.Millisecond)
	}
	return Response{}, false
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []Exchange
}

func (r *fakeRecorder) Record(ex Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ex)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestFlatten_PreservesOrder(t *testing.T) {
	b := Batch{Commands: []Step{{Command: game.Right, Repeat: 3}, {Command: game.Up, Repeat: 2}}}
	got := Flatten(b)
	want := []game.Direction{game.Right, game.Right, game.Right, game.Up, game.Up}
	if len(got) != len(want) {
		t.Fatalf("len=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%s want=%s", i, got[i], want[i])
		}
	}
	if b.Steps() != 5 {
		t.Fatalf("steps=%d want=5", b.Steps())
	}
}

func TestBatch_Validate(t *testing.T) {
	if err := (Batch{}).Validate(); err == nil {
		t.Fatalf("empty batch should be invalid")
	}
	bad := Batch{Commands: []Step{{Command: game.Up, Repeat: 0}}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("zero repeat should be invalid")
	}
	good := Batch{Commands: []Step{{Command: game.Up, Repeat: 1}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
}

func TestBatch_OversizedRepeatIsRejected(t *testing.T) {
	huge := Step{Command: game.Up, Repeat: 1 << 62}
	b := Batch{Commands: []Step{huge, huge, huge, huge}}
	if err := b.Validate(); err == nil {
		t.Fatalf("repeat of 2^62 should be invalid")
	}
	if got := b.Steps(); got != 4*MaxRepeat {
		t.Fatalf("steps=%d want=%d", got, 4*MaxRepeat)
	}
	if got := len(Flatten(b)); got != 4*MaxRepeat {
		t.Fatalf("flattened len=%d want=%d", got, 4*MaxRepeat)
	}

	edge := Batch{Commands: []Step{{Command: game.Left, Repeat: MaxRepeat}}}
	if err := edge.Validate(); err != nil {
		t.Fatalf("repeat at limit rejected: %v", err)
	}
	edge.Commands[0].Repeat++
	if err := edge.Validate(); err == nil {
		t.Fatalf("repeat above limit accepted")
	}

	long := Batch{Commands: make([]Step, MaxCommands+1)}
	for i := range long.Commands {
		long.Commands[i] = Step{Command: game.Right, Repeat: 1}
	}
	if err := long.Validate(); err == nil {
		t.Fatalf("%d commands accepted", len(long.Commands))
	}
}

func TestChannel_SendFailsWithoutWorker(t *testing.T) {
	ch := NewChannel()
	if _, err := ch.TrySend("greedy", Input{}); !errors.Is(err, ErrWorkerBusy) {
		t.Fatalf("err=%v want=%v", err, ErrWorkerBusy)
	}
	if ch.InFlight() {
		t.Fatalf("failed send must not mark in-flight")
	}
}

func TestChannel_SecondRequestRejectedWhileInFlight(t *testing.T) {
	ch := NewChannel()
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	provider := ProviderFunc(func(ctx context.Context, in Input) (Batch, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return Batch{Commands: []Step{{Command: game.Up, Repeat: int(in.FoodY - in.SnakeHeadY)}}}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWorker(Config{}, ch, map[game.ProviderID]Provider{"p": provider}, quietLogger())
	go w.Run(ctx)

	first := sendWhenReady(t, ch, "p", Input{SnakeHeadY: 20, FoodY: 53})

	done := make(chan error, 1)
	go func() {
		_, err := ch.TrySend("p", Input{SnakeHeadY: 0, FoodY: 1})
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrInFlight) {
			t.Fatalf("second send err=%v want=%v", err, ErrInFlight)
		}
	case <-time.After(time.Second):
		t.Fatalf("second TrySend blocked")
	}

	close(release)
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok {
		t.Fatalf("no response")
	}
	if resp.Seq != first || resp.Err != nil {
		t.Fatalf("resp=%+v want seq=%d", resp, first)
	}
	if resp.Batch.Commands[0].Repeat != 33 {
		t.Fatalf("repeat=%d want=33", resp.Batch.Commands[0].Repeat)
	}
	if ch.InFlight() {
		t.Fatalf("in-flight should clear after response")
	}
	if _, ok := receiveWithin(t, ch, 50*time.Millisecond); ok {
		t.Fatalf("unexpected second response")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("provider calls=%d want=1", calls)
	}
}

func TestChannel_InvalidateDropsStaleResponse(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	provider := ProviderFunc(func(ctx context.Context, in Input) (Batch, error) {
		<-release
		return Batch{Commands: []Step{{Command: game.Left, Repeat: 1}}}, nil
	})
	w := NewWorker(Config{}, ch, map[game.ProviderID]Provider{"p": provider}, quietLogger())
	go w.Run(ctx)

	sendWhenReady(t, ch, "p", Input{})
	ch.Invalidate()
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for ch.InFlight() {
		if _, ok := ch.TryReceive(); ok {
			t.Fatalf("stale response delivered")
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale response never released the slot")
		}
		time.Sleep(time.Millisecond)
	}

	second := sendWhenReady(t, ch, "p", Input{})
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok || resp.Seq != second {
		t.Fatalf("resp=%+v ok=%v want seq=%d", resp, ok, second)
	}
}

func TestWorker_ErrorsAreReportedAndBackedOff(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &fakeRecorder{}
	provider := ProviderFunc(func(ctx context.Context, in Input) (Batch, error) {
		return Batch{}, fmt.Errorf("status 429: %w", ErrRateLimited)
	})
	cfg := Config{ErrorBackoff: 0, RateLimitBackoff: 300 * time.Millisecond, ConfigBackoff: 0}
	w := NewWorker(cfg, ch, map[game.ProviderID]Provider{"p": provider}, quietLogger())
	w.SetRecorder(rec)
	go w.Run(ctx)

	sendWhenReady(t, ch, "p", Input{})
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok {
		t.Fatalf("no response")
	}
	if !errors.Is(resp.Err, ErrRateLimited) {
		t.Fatalf("err=%v want rate limited", resp.Err)
	}
	if _, err := ch.TrySend("p", Input{}); !errors.Is(err, ErrWorkerBusy) {
		t.Fatalf("worker should be backing off, err=%v", err)
	}
	sendWhenReady(t, ch, "p", Input{})
	if rec.count() < 1 {
		t.Fatalf("recorder saw %d exchanges", rec.count())
	}
}

func TestWorker_MissingProviderIsAConfigError(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWorker(Config{}, ch, nil, quietLogger())
	go w.Run(ctx)

	sendWhenReady(t, ch, "groq", Input{})
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok {
		t.Fatalf("no response")
	}
	if !errors.Is(resp.Err, ErrNoProvider) {
		t.Fatalf("err=%v want=%v", resp.Err, ErrNoProvider)
	}
}

func TestWorker_CredentialErrorUsesConfigBackoff(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := ProviderFunc(func(ctx context.Context, in Input) (Batch, error) {
		return Batch{}, fmt.Errorf("%w: missing credentials", ErrNoProvider)
	})
	cfg := Config{ErrorBackoff: 0, RateLimitBackoff: 0, ConfigBackoff: 300 * time.Millisecond}
	w := NewWorker(cfg, ch, map[game.ProviderID]Provider{"groq": provider}, quietLogger())
	if got := w.backoff(fmt.Errorf("wrapped: %w", ErrNoProvider)); got != cfg.ConfigBackoff {
		t.Fatalf("backoff=%v want=%v", got, cfg.ConfigBackoff)
	}
	go w.Run(ctx)

	sendWhenReady(t, ch, "groq", Input{})
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok || !errors.Is(resp.Err, ErrNoProvider) {
		t.Fatalf("resp=%+v ok=%v, want missing credentials", resp, ok)
	}
	if _, err := ch.TrySend("groq", Input{}); !errors.Is(err, ErrWorkerBusy) {
		t.Fatalf("worker should be backing off, err=%v", err)
	}
}

func TestWorker_InvalidBatchBecomesError(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := ProviderFunc(func(ctx context.Context, in Input) (Batch, error) {
		return Batch{Commands: []Step{{Command: game.Up, Repeat: -2}}}, nil
	})
	w := NewWorker(Config{}, ch, map[game.ProviderID]Provider{"p": provider}, quietLogger())
	go w.Run(ctx)

	sendWhenReady(t, ch, "p", Input{})
	resp, ok := receiveWithin(t, ch, 2*time.Second)
	if !ok || resp.Err == nil {
		t.Fatalf("resp=%+v ok=%v, want validation error", resp, ok)
	}
}

func TestWorker_StopsOnCancel(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(DefaultConfig(), ch, nil, quietLogger())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop")
	}
}
