// Package connectivity tracks the client's online/offline state and
// triggers sync drains on regain-of-connectivity and on a fixed
// interval.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kakebo/internal/log"
)

// State is the monitor's two-state connectivity machine.
type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// DrainFunc flushes the pending sync queue. The engine supplies it;
// the monitor never imports the engine.
type DrainFunc func(ctx context.Context) error

// Config holds monitor configuration.
type Config struct {
	// SyncInterval is how often to drain while online (default: 5m).
	SyncInterval time.Duration

	// ProbeInterval is how often to probe reachability and feed the
	// state machine. Zero disables probing; platforms with push
	// connectivity signals call SetOnline instead.
	ProbeInterval time.Duration

	// Probe checks remote reachability, typically the gateway's Ping.
	// Used once at Start for the initial state and then per
	// ProbeInterval tick.
	Probe func(ctx context.Context) error

	// OnSynced, if set, runs after the drain fired by an
	// offline-to-online transition.
	OnSynced func()
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SyncInterval:  5 * time.Minute,
		ProbeInterval: time.Minute,
	}
}

// Monitor owns the connectivity state machine. State and the in-flight
// flags live on the Monitor, not in package globals, so tests and
// multiple instances stay independent.
type Monitor struct {
	drain  DrainFunc
	config Config
	logger *log.Logger

	mu      sync.RWMutex
	state   State
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor starting in the Offline state. SetDrainFunc
// must be called before Start.
func NewMonitor(config Config) *Monitor {
	if config.SyncInterval <= 0 {
		config.SyncInterval = 5 * time.Minute
	}
	return &Monitor{
		config: config,
		state:  Offline,
		logger: log.ForComponent(log.ComponentMonitor),
	}
}

// SetDrainFunc wires the sync engine's drain. Must be set before Start.
func (m *Monitor) SetDrainFunc(drain DrainFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drain = drain
}

// Start probes the initial state, performs one drain attempt if already
// online, and begins the ticker loop. Returns an error if already
// running or no drain func is set.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connectivity monitor is already running")
	}
	if m.drain == nil {
		m.mu.Unlock()
		return fmt.Errorf("connectivity monitor needs a drain func before start")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	if m.config.Probe != nil && m.config.Probe(ctx) == nil {
		m.state = Online
	}
	state := m.state
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Connectivity monitor started",
		log.FieldState, string(state),
		"sync_interval", m.config.SyncInterval,
		"probe_interval", m.config.ProbeInterval)

	// Flush anything queued while the process was down.
	if state == Online {
		m.runDrain(ctx)
	}

	go m.runLoop(ctx)
	return nil
}

// Stop gracefully stops the monitor loop.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)

	select {
	case <-m.doneCh:
		m.logger.InfoContext(ctx, "Connectivity monitor stopped")
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Connectivity monitor stop timed out")
		return ctx.Err()
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

// State returns the current connectivity state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Online reports whether the monitor currently considers the client
// online. Readable synchronously at any time.
func (m *Monitor) Online() bool {
	return m.State() == Online
}

// SetOnline ingests a platform connectivity signal. An offline-to-online
// transition fires a drain (and then OnSynced) on a fresh goroutine so
// the signal's caller never blocks on network I/O. Online-to-offline and
// same-state signals have no side effects.
func (m *Monitor) SetOnline(online bool) {
	next := Offline
	if online {
		next = Online
	}

	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	running := m.running
	m.mu.Unlock()

	m.logger.Info("Connectivity changed",
		"from", string(prev),
		"to", string(next))

	if prev == Offline && next == Online && running {
		go func() {
			m.runDrain(context.Background())
			if m.config.OnSynced != nil {
				m.config.OnSynced()
			}
		}()
	}
}

func (m *Monitor) runLoop(ctx context.Context) {
	defer close(m.doneCh)

	syncTicker := time.NewTicker(m.config.SyncInterval)
	defer syncTicker.Stop()

	var probeCh <-chan time.Time
	if m.config.ProbeInterval > 0 && m.config.Probe != nil {
		probeTicker := time.NewTicker(m.config.ProbeInterval)
		defer probeTicker.Stop()
		probeCh = probeTicker.C
	}

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			if m.Online() {
				m.runDrain(ctx)
			}
		case <-probeCh:
			m.SetOnline(m.config.Probe(ctx) == nil)
		}
	}
}

// runDrain invokes the engine's drain. The engine coalesces overlapping
// calls itself, so a tick landing mid-drain is harmless.
func (m *Monitor) runDrain(ctx context.Context) {
	if err := m.drain(ctx); err != nil {
		m.logger.WarnContext(ctx, "Drain failed",
			log.FieldOperation, log.OpDrain,
			log.FieldError, err)
	}
}
