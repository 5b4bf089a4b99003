package daemon_test

import (
	"context"
	"testing"

	"photomatch/internal/daemon"
	"photomatch/internal/logging"
	"photomatch/internal/testsupport"
)

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Addr() == "" {
		t.Fatal("expected a bound api address")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}
	d.Stop()
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New (second): %v", err)
	}
	defer second.Close()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock conflict for second instance")
	}
}
