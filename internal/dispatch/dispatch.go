package dispatch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handler consumes one event at a time. It runs exclusively on the loop
// goroutine, so it may touch loop-owned state without locking.
type Handler func(ev any)

type call struct {
	fn   func()
	done chan struct{}
}

// Loop is a strictly sequential event queue: one dedicated goroutine dequeues
// and fully processes each event before the next. Everything that mutates
// broker state is funneled through it, which is what makes the state machine
// race-free without locks.
type Loop struct {
	handler   Handler
	ch        chan any
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	rejected  atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts the loop goroutine. buffer bounds how many events may queue
// before posters block.
func New(buffer int, handler Handler) *Loop {
	if buffer <= 0 {
		buffer = 1
	}
	l := &Loop{
		handler: handler,
		ch:      make(chan any, buffer),
		done:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		select {
		case ev := <-l.ch:
			l.dispatch(ev)
		case <-l.done:
			// Drain whatever was accepted before close so accepted events
			// are never silently dropped.
			for {
				select {
				case ev := <-l.ch:
					l.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) dispatch(ev any) {
	if c, ok := ev.(call); ok {
		c.fn()
		close(c.done)
		return
	}
	l.handler(ev)
}

// Post enqueues an event, blocking if the queue is full. It reports false
// once the loop has been closed; the event is then dropped and counted. The
// read lock keeps the send and the closed check atomic with respect to
// Close, so a true return means the event will be handled.
func (l *Loop) Post(ev any) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed.Load() {
		l.reject()
		return false
	}
	l.ch <- ev
	return true
}

// PostDelayed schedules an event to be posted after d. With a non-positive
// delay the event posts immediately, which keeps deterministic ordering for
// callers that disable the delay.
func (l *Loop) PostDelayed(d time.Duration, ev any) {
	if l == nil {
		return
	}
	if d <= 0 {
		l.Post(ev)
		return
	}
	time.AfterFunc(d, func() {
		l.Post(ev)
	})
}

// Call runs fn on the loop goroutine and waits for it to complete. It is the
// synchronous entry point for queries that must read loop-owned state. It
// must never be invoked from the handler itself.
func (l *Loop) Call(fn func()) bool {
	if l == nil {
		return false
	}
	c := call{fn: fn, done: make(chan struct{})}
	if !l.Post(c) {
		return false
	}
	<-c.done
	return true
}

func (l *Loop) reject() {
	if l != nil {
		l.rejected.Add(1)
	}
}

// Rejected returns how many events were refused after close.
func (l *Loop) Rejected() uint64 {
	if l == nil {
		return 0
	}
	return l.rejected.Load()
}

// Done exposes the closed signal so helper goroutines can stop with the loop.
func (l *Loop) Done() <-chan struct{} {
	if l == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

// Close stops the loop after draining accepted events. Safe to call more
// than once.
func (l *Loop) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		// Taking the write lock waits for in-flight posts to land in the
		// channel, so the loop's final drain sees every accepted event.
		l.mu.Lock()
		close(l.done)
		l.mu.Unlock()
		l.wg.Wait()
	})
}
