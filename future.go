package compositor

import (
	"context"
	"sync"
)

// Result is the settled state of a Future.
type Result uint8

const (
	ResultPending   Result = iota // not settled yet
	ResultScheduled               // host accepted the animation into its timeline
	ResultCompleted               // playback finished naturally
	ResultStopped                 // playback was stopped before it finished
	ResultFailed                  // host rejected the work; see Err
)

func (r Result) String() string {
	switch r {
	case ResultPending:
		return "pending"
	case ResultScheduled:
		return "scheduled"
	case ResultCompleted:
		return "completed"
	case ResultStopped:
		return "stopped"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Future is a single-assignment completion signal. The first resolve wins;
// later attempts are ignored.
type Future struct {
	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settledFuture returns an already-resolved future.
func settledFuture(r Result, err error) *Future {
	f := newFuture()
	f.resolve(r, err)
	return f
}

// resolve settles the future. Reports whether this call won.
func (f *Future) resolve(r Result, err error) bool {
	won := false
	f.once.Do(func() {
		f.result = r
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

// Done returns a channel closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled result, or ResultPending.
func (f *Future) Result() Result {
	select {
	case <-f.done:
		return f.result
	default:
		return ResultPending
	}
}

// Err returns the failure cause for ResultFailed, nil otherwise.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return ResultPending, ctx.Err()
	}
}
