package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"finarth/internal/log"
)

func TestGracefulShutdownStop(t *testing.T) {
	var cleanups atomic.Int32
	ctx, stop, done := GracefulShutdown(log.Discard(), time.Second, func(context.Context) {
		cleanups.Add(1)
	})

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before stop")
	default:
	}

	stop("consumer failed")
	stop("again")

	waited := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}

	if got := cleanups.Load(); got != 1 {
		t.Fatalf("cleanup ran %d times, want 1", got)
	}
}

func TestGracefulShutdownCleanupTimeout(t *testing.T) {
	ctx, stop, done := GracefulShutdown(log.Discard(), 50*time.Millisecond, func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(time.Second)
	})
	stop("test")

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout did not bound the cleanup")
	}
	if ctx.Err() == nil {
		t.Fatal("context should be cancelled after shutdown")
	}
}
