package space

import (
	"context"
	"fmt"
	"runtime/debug"
)

const defaultLoopBuffer = 64

// Loop runs submitted functions one at a time on a single goroutine. It is
// the only place a Manager and its collaborators are touched, which lets
// HTTP handlers, MQTT callbacks, timers and subprocess readers share the
// space without locks.
//
// Do and Post must not be called with a blocking wait from inside a task:
// a task that calls Do deadlocks the loop.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	logger Logger
}

// NewLoop creates a loop with room for buffer queued tasks.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = defaultLoopBuffer
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that
// point are discarded. Run must be called exactly once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in space task",
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Post queues fn without waiting for it to run. It blocks only while the
// queue is full and returns ErrLoopStopped once the loop has exited.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Do runs fn on the loop and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("space task panicked: %v", r)
				panic(r)
			}
			result <- err
		}()
		err = fn()
	}

	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
