package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zooarc/menagerie/logger"
)

func newTestManager(timeout time.Duration) *Manager {
	return NewManager(ManagerParams{
		Logger: logger.NewNop(),
		Config: &Config{Timeout: timeout},
	})
}

func TestHooksRunInPriorityOrder(t *testing.T) {
	m := newTestManager(time.Second)

	var order []string
	m.RegisterHookWithPriority("last", func(ctx context.Context) error {
		order = append(order, "last")
		return nil
	}, PriorityLast)
	m.RegisterHookWithPriority("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	}, PriorityFirst)

	m.Shutdown(context.Background())

	if len(order) != 2 || order[0] != "first" || order[1] != "last" {
		t.Fatalf("order = %v, want [first last]", order)
	}
	if !m.IsShutdown() {
		t.Fatal("IsShutdown = false after Shutdown")
	}
}

func TestShutdownTimeoutAbandonsSlowHooks(t *testing.T) {
	m := newTestManager(100 * time.Millisecond)

	var fastCalled atomic.Bool
	m.RegisterHook("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m.RegisterHook("fast", func(ctx context.Context) error {
		fastCalled.Store(true)
		return nil
	})

	start := time.Now()
	m.Shutdown(context.Background())
	elapsed := time.Since(start)

	if !fastCalled.Load() {
		t.Fatal("fast hook not executed")
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("shutdown took too long: %v", elapsed)
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := newTestManager(time.Second)

	var calls atomic.Int32
	m.RegisterHook("counter", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	if n := calls.Load(); n != 1 {
		t.Fatalf("hook ran %d times, want 1", n)
	}
}
