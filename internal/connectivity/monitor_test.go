package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitorInitialStateFromProbe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probe = func(context.Context) error { return nil }
	m := NewMonitor(cfg)

	var drains atomic.Int32
	m.SetDrainFunc(func(context.Context) error {
		drains.Add(1)
		return nil
	})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(ctx)

	if !m.Online() {
		t.Error("probe succeeded, monitor should start online")
	}
	if drains.Load() != 1 {
		t.Errorf("expected one initial drain, got %d", drains.Load())
	}
}

func TestMonitorStartsOfflineWhenProbeFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeInterval = 0
	cfg.Probe = func(context.Context) error { return errors.New("no route to host") }
	m := NewMonitor(cfg)

	var drains atomic.Int32
	m.SetDrainFunc(func(context.Context) error {
		drains.Add(1)
		return nil
	})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(ctx)

	if m.Online() {
		t.Error("probe failed, monitor should start offline")
	}
	if drains.Load() != 0 {
		t.Errorf("no drain should run while offline, got %d", drains.Load())
	}
}

func TestMonitorRegainOfConnectivityFiresDrainAndCallback(t *testing.T) {
	synced := make(chan struct{}, 1)
	cfg := DefaultConfig()
	cfg.ProbeInterval = 0
	cfg.OnSynced = func() { synced <- struct{}{} }
	m := NewMonitor(cfg)

	var drains atomic.Int32
	m.SetDrainFunc(func(context.Context) error {
		drains.Add(1)
		return nil
	})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(ctx)

	m.SetOnline(true)

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("OnSynced callback never fired after regain of connectivity")
	}
	if drains.Load() != 1 {
		t.Errorf("expected one drain after transition, got %d", drains.Load())
	}

	// Same-state signal must not fire anything.
	m.SetOnline(true)
	select {
	case <-synced:
		t.Fatal("same-state signal should have no side effects")
	case <-time.After(100 * time.Millisecond):
	}

	// Going offline must not drain.
	before := drains.Load()
	m.SetOnline(false)
	time.Sleep(100 * time.Millisecond)
	if drains.Load() != before {
		t.Error("online-to-offline transition must not drain")
	}
}

func TestMonitorPeriodicDrainWhileOnline(t *testing.T) {
	cfg := Config{SyncInterval: 50 * time.Millisecond}
	m := NewMonitor(cfg)

	var drains atomic.Int32
	m.SetDrainFunc(func(context.Context) error {
		drains.Add(1)
		return nil
	})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(ctx)

	m.SetOnline(true)
	deadline := time.Now().Add(2 * time.Second)
	for drains.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if drains.Load() < 3 {
		t.Fatalf("expected repeated periodic drains, got %d", drains.Load())
	}

	// Ticks while offline must not drain.
	m.SetOnline(false)
	time.Sleep(50 * time.Millisecond) // let an in-flight tick settle
	before := drains.Load()
	time.Sleep(200 * time.Millisecond)
	if drains.Load() != before {
		t.Errorf("ticker drained while offline: %d -> %d", before, drains.Load())
	}
}

func TestMonitorLifecycle(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	ctx := context.Background()

	if err := m.Start(ctx); err == nil {
		t.Error("start without a drain func should fail")
	}

	m.SetDrainFunc(func(context.Context) error { return nil })
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Error("second start should fail while running")
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop when not running is a no-op.
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
