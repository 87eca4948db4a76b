// Package host holds the DAW-side object model and the tick loop that
// serializes every mutation onto one logical thread. The real application's
// object graph is not reentrant; the listener never calls into it directly,
// it submits closures here.
package host

import (
	"context"
	"errors"

	"github.com/soundops/dawlink/core/logx"
)

// ErrClosed is returned for work submitted after the loop shut down.
var ErrClosed = errors.New("host: tick loop closed")

// Scheduler marshals a closure onto the host's execution context and waits
// for it to finish.
type Scheduler interface {
	Do(ctx context.Context, fn func()) error
}

// TickLoop is a Scheduler backed by a single goroutine that owns the object
// model. Handlers run one at a time, in submission order.
type TickLoop struct {
	jobs chan tickJob
	quit chan struct{}
}

type tickJob struct {
	fn   func()
	done chan struct{}
}

// NewTickLoop starts the loop goroutine.
func NewTickLoop() *TickLoop {
	l := &TickLoop{
		jobs: make(chan tickJob),
		quit: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *TickLoop) run() {
	for {
		select {
		case job := <-l.jobs:
			job.fn()
			close(job.done)
		case <-l.quit:
			return
		}
	}
}

// Do submits fn and blocks until it has run. The closure itself is never
// abandoned mid-execution; ctx only bounds the wait for a slot and for
// completion, mirroring the no-cancellation rule for dispatched commands.
func (l *TickLoop) Do(ctx context.Context, fn func()) error {
	job := tickJob{fn: fn, done: make(chan struct{})}
	select {
	case l.jobs <- job:
	case <-l.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		logx.Log.Warn().Msg("abandoned wait for tick job; handler still runs to completion")
		return ctx.Err()
	}
}

// Close stops the loop. Pending submissions fail with ErrClosed.
func (l *TickLoop) Close() {
	close(l.quit)
}
