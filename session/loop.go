package session

import (
	"errors"
	"sync"
)

// ErrClosed is returned by controller calls made after Close.
var ErrClosed = errors.New("forecast session closed")

// loop runs submitted tasks one at a time on a single goroutine. All controller
// state is owned by that goroutine.
type loop struct {
	tasks     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newLoop() *loop {
	l := &loop{
		tasks: make(chan func(), 64),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// submit queues fn without waiting for it. It reports false once the loop is stopping.
func (l *loop) submit(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// call runs fn on the loop and waits for it. It must not be used from inside a task.
func (l *loop) call(fn func()) error {
	finished := make(chan struct{})
	if !l.submit(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may have been queued behind the quit signal.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (l *loop) stop() {
	l.closeOnce.Do(func() { close(l.quit) })
	<-l.done
}
