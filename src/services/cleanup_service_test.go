package services

import (
	"context"
	"testing"
	"time"
)

// stopReturns runs Stop in a goroutine and reports whether it returned
// before the deadline
func stopReturns(cs *CleanupService, deadline time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cs.Stop()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(deadline):
		return false
	}
}

func TestCleanupService_StopWhenDisabled(t *testing.T) {
	cs := NewCleanupService(nil, false)
	cs.Start(context.Background())

	if !stopReturns(cs, 2*time.Second) {
		t.Fatal("Stop blocked with the service disabled; shutdown would hang")
	}
}

func TestCleanupService_StopWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewCleanupService(nil, true)
	cs.Start(ctx)

	if !stopReturns(cs, 2*time.Second) {
		t.Fatal("Stop blocked with the service running")
	}
}

func TestCleanupService_StopTwice(t *testing.T) {
	cs := NewCleanupService(nil, false)
	cs.Start(context.Background())

	cs.Stop()
	if !stopReturns(cs, 2*time.Second) {
		t.Fatal("second Stop blocked or panicked")
	}
}
