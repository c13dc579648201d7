// Package reconcile keeps generated artifacts in step with the file system.
//
// Loop is a small state machine:
//
//	Idle --event--> Debouncing --timer--> Generating --done--> Idle
//	                                         |
//	                      timer while busy   v
//	                                 GeneratingRerunQueued --done, delay--> Generating
//
// At most one pass runs at a time, and any number of events that arrive while a
// pass is running collapse into exactly one follow-up pass. A running pass is
// never cancelled.
package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/metrics"
)

// State is the externally visible state of a Loop.
type State int

const (
	Idle State = iota
	Debouncing
	Generating
	GeneratingRerunQueued
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Generating:
		return "generating"
	case GeneratingRerunQueued:
		return "generating+rerun"
	}
	return "unknown"
}

// Op classifies a file-system event.
type Op int

const (
	OpCreate Op = iota
	OpRemove
	OpModify
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpModify:
		return "modify"
	}
	return "unknown"
}

// Event is one file-system change, with an absolute path.
// Dir marks events about a directory, such as a removed folder of pages.
type Event struct {
	Op   Op
	Path string
	Dir  bool
}

// PassFunc runs one complete regeneration pass.
type PassFunc func(ctx context.Context) error

type Options struct {
	// Debounce applies to create and remove events.
	Debounce time.Duration
	// ModifyDebounce applies to modify events; it is normally the longer window.
	ModifyDebounce time.Duration
	// RerunDelay separates a pass from the coalesced pass queued behind it.
	RerunDelay time.Duration
	// Relevant filters events; nil accepts everything.
	Relevant func(Event) bool
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

type Loop struct {
	pass PassFunc
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	ctx        context.Context
	timer      *time.Timer
	seq        uint64
	generating bool
	rerun      bool
	closed     bool
	inflight   sync.WaitGroup
}

func New(pass PassFunc, opts Options) *Loop {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{pass: pass, opts: opts, log: log, ctx: context.Background()}
}

// Start runs the unconditional startup pass and returns its error.
// Events notified while it runs queue a single rerun like any other pass.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.ctx = ctx
	l.generating = true
	l.inflight.Add(1)
	l.mu.Unlock()

	return l.runPass()
}

// Notify feeds one file-system event into the loop.
func (l *Loop) Notify(ev Event) {
	relevant := l.opts.Relevant == nil || l.opts.Relevant(ev)
	l.opts.Metrics.ObserveEvent(relevant)
	if !relevant {
		return
	}

	window := l.opts.Debounce
	if ev.Op == OpModify {
		window = l.opts.ModifyDebounce
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.seq++
	seq := l.seq
	l.timer = time.AfterFunc(window, func() { l.elapse(seq) })
	l.log.Debug("change queued", zap.String("op", ev.Op.String()), zap.String("path", ev.Path), zap.Duration("debounce", window))
}

// elapse fires when a debounce window closes. A timer that was superseded by
// a later event (seq mismatch) does nothing.
func (l *Loop) elapse(seq uint64) {
	l.mu.Lock()
	if l.closed || seq != l.seq {
		l.mu.Unlock()
		return
	}
	l.timer = nil
	if l.generating {
		l.rerun = true
		l.mu.Unlock()
		return
	}
	l.generating = true
	l.inflight.Add(1)
	l.mu.Unlock()

	_ = l.runPass()
}

// runPass executes one pass. The caller has set generating and added to inflight.
func (l *Loop) runPass() error {
	defer l.inflight.Done()

	l.mu.Lock()
	if l.closed {
		l.generating = false
		l.rerun = false
		l.mu.Unlock()
		return nil
	}
	ctx := l.ctx
	l.mu.Unlock()

	err := l.pass(ctx)
	if err != nil {
		l.log.Warn("regeneration pass failed; waiting for the next change", zap.Error(err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rerun && !l.closed {
		l.rerun = false
		l.inflight.Add(1)
		time.AfterFunc(l.opts.RerunDelay, func() { _ = l.runPass() })
		return err
	}
	l.generating = false
	l.rerun = false
	return err
}

// State reports where the loop is. A pending timer during a pass still reads as Generating.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.generating && l.rerun:
		return GeneratingRerunQueued
	case l.generating:
		return Generating
	case l.timer != nil:
		return Debouncing
	}
	return Idle
}

// Close stops pending timers and waits for a running pass to finish.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()

	l.inflight.Wait()
}
