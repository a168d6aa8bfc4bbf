package geometry

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultQuiescence is how long the window must stay still before its
// geometry is persisted.
const DefaultQuiescence = 500 * time.Millisecond

// Saver persists window bounds. Failures are logged and otherwise ignored;
// the next successful save catches up.
type Saver interface {
	SaveWindowBounds(ctx context.Context, bounds Bounds) error
}

// Debouncer collapses bursts of resize/move notifications into a single
// persisted write. Every notification restarts the quiescence timer; only
// when the window has been still for the full interval does the debouncer
// read the current geometry and invoke the saver.
type Debouncer struct {
	window     Window
	saver      Saver
	quiescence time.Duration
	logger     *log.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// DebouncerOption customises a Debouncer.
type DebouncerOption func(*Debouncer)

// WithQuiescence overrides the quiescence interval, mainly for tests.
func WithQuiescence(d time.Duration) DebouncerOption {
	return func(db *Debouncer) {
		if d > 0 {
			db.quiescence = d
		}
	}
}

// WithLogger overrides the logger used for save failures.
func WithLogger(logger *log.Logger) DebouncerOption {
	return func(db *Debouncer) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// NewDebouncer creates a debouncer reading geometry from window and
// persisting through saver.
func NewDebouncer(window Window, saver Saver, opts ...DebouncerOption) *Debouncer {
	db := &Debouncer{
		window:     window,
		saver:      saver,
		quiescence: DefaultQuiescence,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Notify records that the window geometry changed. The pending persistence
// timer, if any, is cancelled and a fresh one is scheduled.
func (db *Debouncer) Notify() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return
	}
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.quiescence, db.fire)
}

// Close cancels any pending write. A fire racing with Close is suppressed,
// so no save happens after Close returns.
func (db *Debouncer) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}

func (db *Debouncer) fire() {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return
	}
	db.timer = nil
	db.mu.Unlock()

	bounds := Read(db.window)
	if err := db.saver.SaveWindowBounds(context.Background(), bounds); err != nil {
		db.logger.Printf("[Geometry] failed to save window bounds: %v", err)
	}
}
