package main

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestRunStopsOnSigterm(t *testing.T) {
	// SIGTERM must bring down the workers too, not just the HTTP
	// server; otherwise the process hangs with the server already gone.
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("QUEUE_PULL_INTERVAL", "10ms")

	cfg := appConfig{
		ServiceName:   "notifyd",
		Environment:   "development",
		StorageDriver: "memory",
		QueueDriver:   "memory",
		EmailProvider: "dev",
		SMSProvider:   "dev",
		PushProvider:  "dev",
		DevOutboxDir:  t.TempDir(),
	}
	log := logger.New(logger.WithDevelopment(cfg.ServiceName))

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), cfg, log) }()

	// Give run time to install its signal handler and start listening.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after SIGTERM")
	}
}
