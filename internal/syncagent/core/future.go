package core

import (
	"context"
	"fmt"
	"sync"
)

// Future is a single-assignment result of an export. The first Resolve wins;
// later calls are ignored.
type Future struct {
	once sync.Once
	done chan struct{}

	data []byte
	err  error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns an already completed Future.
func Resolved(data []byte, err error) *Future {
	f := NewFuture()
	f.Resolve(data, err)
	return f
}

// Go runs fn on a new goroutine and resolves the returned Future with its
// result. A panic in fn resolves the Future with a Fatal error.
func Go(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) *Future {
	f := NewFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Resolve(nil, NewError(Fatal, "exporter panicked", fmt.Errorf("%v", r)))
			}
		}()
		f.Resolve(fn(ctx))
	}()
	return f
}

// Resolve completes the Future. It reports whether this call was the one that completed it.
func (f *Future) Resolve(data []byte, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.data, f.err = data, err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future is resolved or ctx is done.
func (f *Future) Await(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
