// Package kernel provides the single-goroutine dispatcher the theater runs
// on: a FIFO macrotask queue, a microtask queue drained between macrotasks,
// and timers that deliver as macrotasks.
package kernel

import (
	"sync"
	"time"
)

// Loop is a single-goroutine task executor. Post and AfterFunc are safe from
// any goroutine; Microtask and the timer-stop closures must only be called
// from on-loop context (the loop goroutine itself, or a coroutine holding
// the loop's turn).
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool

	// micro is loop-local: written and drained only while the loop's turn
	// is held, so no lock is needed.
	micro []func()

	wg sync.WaitGroup
}

// New creates a stopped loop. Call Start before posting work that must run.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine.
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()
}

// Stop halts the dispatcher after the current task. Pending tasks are
// dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.done)
	l.wg.Wait()
}

// Post enqueues a macrotask.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Microtask enqueues a task that runs before the next macrotask. On-loop
// context only.
func (l *Loop) Microtask(f func()) {
	l.micro = append(l.micro, f)
}

// AfterFunc arms a timer that posts f as a macrotask after d. The returned
// stop function (on-loop context only) disarms it; a timer already in flight
// is dropped at delivery.
func (l *Loop) AfterFunc(d time.Duration, f func()) (stop func()) {
	cancelled := false
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled {
				f()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

// Do runs f on the loop and blocks until it returns. It must not be called
// from on-loop context: that would deadlock, and on-loop callers can simply
// call f directly.
func (l *Loop) Do(f func()) {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		f()
	})
	select {
	case <-finished:
	case <-l.done:
	}
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		f := l.pop()
		if f == nil {
			select {
			case <-l.wake:
				continue
			case <-l.done:
				return
			}
		}
		f()
		l.drainMicrotasks()

		select {
		case <-l.done:
			return
		default:
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	f := l.queue[0]
	l.queue = l.queue[1:]
	return f
}

func (l *Loop) drainMicrotasks() {
	for len(l.micro) > 0 {
		m := l.micro[0]
		l.micro = l.micro[1:]
		m()
	}
}
