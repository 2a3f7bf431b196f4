package sconn

import (
	"context"
	"sync"

	"github.com/sconn-client/sconn/internal/sproto"
)

type promiseState int32

const (
	promisePending promiseState = iota
	promiseResolved
	promiseRejected
)

// Promise is the future Call returns. The session's tick loop resolves or
// rejects it from dispatch; the caller's goroutine (if different) blocks
// in Await until that happens or ctx is cancelled.
type Promise struct {
	mu    sync.Mutex
	state promiseState
	value *sproto.Value
	err   error
	done  chan struct{}
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func (p *Promise) resolve(v *sproto.Value) {
	p.mu.Lock()
	if p.state != promisePending {
		p.mu.Unlock()
		return
	}
	p.state = promiseResolved
	p.value = v
	p.mu.Unlock()
	close(p.done)
}

func (p *Promise) reject(err error) {
	p.mu.Lock()
	if p.state != promisePending {
		p.mu.Unlock()
		return
	}
	p.state = promiseRejected
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// Await blocks until the promise settles or ctx is done.
func (p *Promise) Await(ctx context.Context) (*sproto.Value, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state == promiseRejected {
			return nil, p.err
		}
		return p.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Poll reports the promise's settled value without blocking. done is
// false while the call is still outstanding.
func (p *Promise) Poll() (value *sproto.Value, err error, done bool) {
	select {
	case <-p.done:
	default:
		return nil, nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == promiseRejected {
		return nil, p.err, true
	}
	return p.value, nil, true
}
