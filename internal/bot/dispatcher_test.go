package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
)

type processorFunc func(ctx context.Context, u *api.Update) error

func (f processorFunc) Process(ctx context.Context, u *api.Update) error {
	return f(ctx, u)
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	processed := map[int]bool{}
	d := NewDispatcher(processorFunc(func(_ context.Context, u *api.Update) error {
		switch u.UpdateID {
		case 1:
			panic("broken update")
		case 2:
			return errors.New("transport failure")
		}
		mu.Lock()
		processed[u.UpdateID] = true
		mu.Unlock()
		return nil
	}), 2, time.Second)

	updates := make(chan api.Update, 5)
	for i := 1; i <= 5; i++ {
		updates <- api.Update{UpdateID: i}
	}
	close(updates)

	if err := d.Run(context.Background(), updates); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 3; i <= 5; i++ {
		if !processed[i] {
			t.Fatalf("update %d was not processed: %v", i, processed)
		}
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	var current, peak atomic.Int32
	d := NewDispatcher(processorFunc(func(_ context.Context, _ *api.Update) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return nil
	}), workers, time.Second)

	updates := make(chan api.Update, 20)
	for i := 0; i < 20; i++ {
		updates <- api.Update{UpdateID: i}
	}
	close(updates)

	if err := d.Run(context.Background(), updates); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak.Load() > workers {
		t.Fatalf("peak concurrency %d exceeds %d", peak.Load(), workers)
	}
}

func TestDispatcherTimesOutStuckUpdates(t *testing.T) {
	t.Parallel()

	var timedOut atomic.Bool
	d := NewDispatcher(processorFunc(func(ctx context.Context, _ *api.Update) error {
		<-ctx.Done()
		timedOut.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	}), 1, 20*time.Millisecond)

	updates := make(chan api.Update, 1)
	updates <- api.Update{UpdateID: 1}
	close(updates)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), updates) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stuck update wedged the dispatcher")
	}
	if !timedOut.Load() {
		t.Fatalf("update context did not time out")
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(processorFunc(func(context.Context, *api.Update) error { return nil }), 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx, make(chan api.Update)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestDispatcherLogsErrorKind(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(processorFunc(func(_ context.Context, u *api.Update) error {
		if u.UpdateID == 1 {
			return apperrors.Store(errors.New("database is locked"), "check blocklist")
		}
		return errors.New("unclassified")
	}), 1, time.Second)
	logger, hook := logtest.NewNullLogger()
	d.log = log.NewEntry(logger)

	d.handle(context.Background(), &api.Update{UpdateID: 1})
	d.handle(context.Background(), &api.Update{UpdateID: 2})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if kind := entries[0].Data["error_kind"]; kind != "store failure" {
		t.Fatalf("unexpected error kind: %v", kind)
	}
	if _, ok := entries[1].Data["error_kind"]; ok {
		t.Fatalf("unclassified error got a kind: %v", entries[1].Data)
	}
}
