package infra

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetWorkDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := GetWorkDir(base, "db", "sqlite")
	if err != nil {
		t.Fatalf("get work dir: %v", err)
	}
	if dir != filepath.Join(base, "db", "sqlite") {
		t.Fatalf("unexpected dir: %s", dir)
	}
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}

func TestCatchPanic(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer CatchPanic("test")
		panic("boom")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("goroutine did not finish")
	}
}

func TestGoRecoverableRestarts(t *testing.T) {
	restartDelay = time.Millisecond
	t.Cleanup(func() { restartDelay = 5 * time.Second })

	var runs atomic.Int32
	finished := make(chan struct{})
	GoRecoverable(2, "flaky", func() {
		if runs.Add(1) < 3 {
			panic("flaky")
		}
		close(finished)
	})

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("job was not restarted, runs: %d", runs.Load())
	}
}

func TestMonitorFile(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "binary")
	if err := os.WriteFile(filename, []byte("v1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := monitorFile(ctx, filename, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filename, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case _, ok := <-changed:
		if !ok {
			t.Fatalf("monitor stopped without signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("change not detected")
	}
}

func TestMonitorFileStopsOnCancel(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "binary")
	if err := os.WriteFile(filename, []byte("v1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := monitorFile(ctx, filename, 10*time.Millisecond)
	cancel()

	select {
	case _, ok := <-changed:
		if ok {
			t.Fatalf("unexpected change signal")
		}
	case <-time.After(time.Second):
		t.Fatalf("monitor did not stop")
	}
}
