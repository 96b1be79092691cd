package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tech17x/fizzyadmin-sub000/internal/config"
)

func TestGracefulServer_RunsHooksOnShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, config.ServerConfig{ShutdownTimeout: config.Duration(5 * time.Second)})

	var ran atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	failure := errors.New("flush failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return failure
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, failure) {
			t.Errorf("Run() error = %v, want hook failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if got := ran.Load(); got != 2 {
		t.Errorf("hooks ran %d times, want 2", got)
	}
}

func TestGracefulServer_ListenFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpServer := &http.Server{Addr: "127.0.0.1:-1"}
	gs := NewGracefulServer(httpServer, logger, config.ServerConfig{ShutdownTimeout: config.Duration(time.Second)})

	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() should fail for an invalid address")
	}
}
