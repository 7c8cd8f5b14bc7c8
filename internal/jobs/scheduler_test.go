package jobs

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"oddsley/internal/tasks"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	registry := tasks.NewRegistry(testLogger())

	var runs atomic.Int64
	done := make(chan struct{})
	registry.Register("counting", func(ctx context.Context, params tasks.Params) (string, error) {
		if runs.Add(1) == 1 {
			close(done)
		}
		return "ok", nil
	})

	scheduler := NewScheduler(registry, testLogger())
	scheduler.Add("counting", nil, time.Hour)
	scheduler.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the task to run once at startup")
	}

	scheduler.Stop()
	// With an hour-long interval the startup run is the only one.
	if got := runs.Load(); got != 1 {
		t.Errorf("expected exactly 1 run, got %d", got)
	}
}

func TestSchedulerTicks(t *testing.T) {
	registry := tasks.NewRegistry(testLogger())

	var runs atomic.Int64
	registry.Register("ticking", func(ctx context.Context, params tasks.Params) (string, error) {
		runs.Add(1)
		return "ok", nil
	})

	scheduler := NewScheduler(registry, testLogger())
	scheduler.Add("ticking", nil, 10*time.Millisecond)
	scheduler.Start()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	scheduler.Stop()
}
