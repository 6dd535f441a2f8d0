package motion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// Stats counts samples seen by a Manager.
type Stats struct {
	Received int64
	Dropped  int64
}

// Manager owns a motion source while sensing is active. It reads samples
// on its own goroutine and hands them to a single consumer through a
// buffered channel; when the consumer falls behind, samples are dropped
// rather than blocking the sensor.
type Manager struct {
	log     *slog.Logger
	samples chan Sample

	received *atomic.Int64
	dropped  *atomic.Int64
	paused   *atomic.Bool

	mu      sync.Mutex
	src     Source
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	started bool
}

// NewManager creates a manager whose sample channel holds buffer samples.
func NewManager(buffer int, log *slog.Logger) *Manager {
	if buffer < 1 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:      log,
		samples:  make(chan Sample, buffer),
		received: atomic.NewInt64(0),
		dropped:  atomic.NewInt64(0),
		paused:   atomic.NewBool(false),
	}
}

// Start opens a source and begins delivering samples. If open fails the
// returned error wraps ErrUnavailable. A manager can be started once.
func (m *Manager) Start(ctx context.Context, open func() (Source, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("motion manager already started")
	}

	src, err := open()
	if err != nil {
		m.log.Warn("motion source unavailable", "err", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.src = src
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true

	go m.run(ctx, src)
	return nil
}

func (m *Manager) run(ctx context.Context, src Source) {
	defer close(m.done)
	defer close(m.samples)

	for {
		s, err := src.Next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				m.log.Error("motion source failed", "err", err)
				m.setErr(err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if m.paused.Load() {
			continue
		}
		m.received.Inc()

		select {
		case m.samples <- s:
		case <-ctx.Done():
			return
		default:
			m.dropped.Inc()
		}
	}
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Samples returns the delivery channel. It is closed when the source ends
// or the manager stops.
func (m *Manager) Samples() <-chan Sample {
	return m.samples
}

// Stop stops listening to the sensor and waits for the reader to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started || m.cancel == nil {
		m.mu.Unlock()
		return nil
	}
	cancel, src, done := m.cancel, m.src, m.done
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	err := src.Close()
	<-done
	return err
}

// Err returns the error that ended the source, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// SetPaused discards incoming samples while paused is true.
func (m *Manager) SetPaused(paused bool) {
	m.paused.Store(paused)
}

// Paused reports whether sensing is paused.
func (m *Manager) Paused() bool {
	return m.paused.Load()
}

// Stats returns the current sample counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Received: m.received.Load(),
		Dropped:  m.dropped.Load(),
	}
}
