package modelsync

import (
	"context"
	"sync"
	"time"
)

// Request is one synchronization attempt. It resolves exactly once.
type Request struct {
	ModelName    string
	PayloadBytes int
	EncodedBytes int
	SubmittedAt  time.Time

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// Outcome is the resolution of a Request. Err is nil on success, in which
// case ConfirmedName is the name the engine acknowledged.
type Outcome struct {
	ConfirmedName string
	Err           error
}

func newRequest(name string, payload, encoded int, now time.Time) *Request {
	return &Request{
		ModelName:    name,
		PayloadBytes: payload,
		EncodedBytes: encoded,
		SubmittedAt:  now,
		done:         make(chan struct{}),
	}
}

func (r *Request) complete(o Outcome) {
	r.once.Do(func() {
		r.outcome = o
		close(r.done)
	})
}

// Done is closed when the request is resolved.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Outcome blocks until the request is resolved and returns the resolution.
func (r *Request) Outcome() Outcome {
	<-r.done
	return r.outcome
}

// Wait blocks until the request resolves or ctx is done.
func (r *Request) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.outcome.ConfirmedName, r.outcome.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
