// Package audit records security-relevant authentication events off the
// request path. Events are consumed by a small worker pool and emitted
// as structured log entries; the hot path never blocks on them.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event actions.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionRefresh  = "refresh"
)

// OutcomeSuccess marks an event that completed without error. Failed
// events carry the error code of the failure instead.
const OutcomeSuccess = "success"

// Event is a single authentication attempt, successful or not.
type Event struct {
	Action   string
	Outcome  string
	Username string
	IP       string
	At       time.Time
}

// TrailConfig configures worker pool behaviour.
type TrailConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Trail is an in-memory event recorder backed by goroutines. Record is
// non-blocking: when the buffer is full the event is dropped and the
// drop is counted, so a slow sink can never stall logins.
type Trail struct {
	workers int
	logger  *zap.Logger

	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	dropped int64
}

// NewTrail builds a trail with the provided configuration.
func NewTrail(cfg TrailConfig) *Trail {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Trail{
		workers: cfg.Workers,
		logger:  cfg.Logger,
		events:  make(chan Event, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (t *Trail) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}
	t.started = true
}

// Stop cancels workers, drains buffered events and waits for exit.
// Events recorded after Stop are discarded.
func (t *Trail) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	t.cancel()
	t.mu.Unlock()
	t.wg.Wait()

	for {
		select {
		case ev := <-t.events:
			t.emit(ev)
		default:
			return
		}
	}
}

// Record enqueues an event. A nil trail or a stopped/full trail drops
// the event silently so callers need no error handling.
func (t *Trail) Record(ev Event) {
	if t == nil {
		return
	}

	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return
	}

	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	select {
	case t.events <- ev:
	default:
		t.mu.Lock()
		t.dropped++
		t.mu.Unlock()
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (t *Trail) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *Trail) worker() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ctx.Done():
			return
		case ev := <-t.events:
			t.emit(ev)
		}
	}
}

func (t *Trail) emit(ev Event) {
	fields := []interface{}{
		"action", ev.Action,
		"outcome", ev.Outcome,
		"username", ev.Username,
		"ip", ev.IP,
		"at", ev.At,
	}
	if ev.Outcome == OutcomeSuccess {
		t.logger.Sugar().Infow("auth event", fields...)
		return
	}
	t.logger.Sugar().Warnw("auth event", fields...)
}
