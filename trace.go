package pfsm

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Record describes one successful transition.
type Record[S State] struct {
	Machine  string
	Event    Event
	Prev     S
	Next     S
	Location string
}

// Named reports whether the transition was issued through a declared event.
func (r Record[S]) Named() bool { return r.Event != "" && r.Event != Anonymous }

// Tracer receives a Record after every successful transition. It runs on the
// transitioning goroutine after the state has been written; implementations
// must be fast and must not block. Panics are recovered and discarded.
type Tracer[S State] interface {
	Transition(record Record[S])
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc[S State] func(record Record[S])

// Transition calls f(record).
func (f TracerFunc[S]) Transition(record Record[S]) { f(record) }

// SlogTracer writes transitions as structured log records.
type SlogTracer[S State] struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogTracer creates a tracer logging at level. If logger is nil,
// slog.Default() is used.
func NewSlogTracer[S State](logger *slog.Logger, level slog.Level) *SlogTracer[S] {
	if logger == nil {
		logger = slog.Default()
	}

	return &SlogTracer[S]{logger: logger, level: level}
}

func (t *SlogTracer[S]) Transition(r Record[S]) {
	ctx := context.Background()
	if !t.logger.Enabled(ctx, t.level) {
		return
	}

	attrs := make([]slog.Attr, 0, 5)
	attrs = append(attrs, slog.String("machine", r.Machine))

	if r.Named() {
		attrs = append(attrs, slog.String("event", string(r.Event)))
	}

	attrs = append(attrs,
		slog.String("prev", r.Prev.String()),
		slog.String("next", r.Next.String()),
		slog.String("location", r.Location),
	)

	t.logger.LogAttrs(ctx, t.level, "state transition", attrs...)
}

// AsyncTracer hands records to another tracer on a background goroutine.
// When the buffer is full the record is dropped and counted; a transition
// never waits for the sink.
type AsyncTracer[S State] struct {
	next    Tracer[S]
	records chan Record[S]
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncTracer starts a goroutine delivering to next through a buffer of
// the given size (at least 1). Close stops it.
func NewAsyncTracer[S State](next Tracer[S], buffer int) *AsyncTracer[S] {
	if buffer < 1 {
		buffer = 1
	}

	t := &AsyncTracer[S]{
		next:    next,
		records: make(chan Record[S], buffer),
		done:    make(chan struct{}),
	}

	go t.run()

	return t
}

func (t *AsyncTracer[S]) run() {
	defer close(t.done)

	for r := range t.records {
		t.deliver(r)
	}
}

func (t *AsyncTracer[S]) deliver(r Record[S]) {
	defer func() { _ = recover() }()
	t.next.Transition(r)
}

func (t *AsyncTracer[S]) Transition(r Record[S]) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.dropped.Add(1)
		return
	}

	select {
	case t.records <- r:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns the number of records discarded so far.
func (t *AsyncTracer[S]) Dropped() uint64 { return t.dropped.Load() }

// Close stops accepting records and waits until the buffered ones have been
// delivered. It is safe to call more than once.
func (t *AsyncTracer[S]) Close() error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.records)
	}
	t.mu.Unlock()

	<-t.done

	return nil
}

// NewTracer builds the tracer described by cfg. It returns nil when tracing
// is disabled, which keeps the transition path free of any record work.
func NewTracer[S State](cfg Config, logger *slog.Logger) Tracer[S] {
	if !cfg.Tracing {
		return nil
	}

	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelDebug
	}

	var tracer Tracer[S] = NewSlogTracer[S](logger, level)
	if cfg.TraceBuffer > 0 {
		tracer = NewAsyncTracer(tracer, cfg.TraceBuffer)
	}

	return tracer
}

// CloseTracer closes tracers that hold resources, such as AsyncTracer, so
// buffered records are delivered before the program exits. Other tracers,
// nil included, are left alone.
func CloseTracer[S State](tracer Tracer[S]) error {
	if c, ok := tracer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
