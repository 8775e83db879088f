package client

import (
	"context"
	"sync"

	"github.com/cnosuke/httpget/types"
	"github.com/cockroachdb/errors"
)

// ErrPending is returned by Call.Result while the request is in flight.
var ErrPending = errors.New("httpget: request still in flight")

// A Call is a request running in the background. It completes exactly
// once with either a result or a classified error.
type Call struct {
	done   chan struct{}
	once   sync.Once
	result *types.Result
	err    error
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// complete records the outcome. Only the first call has an effect.
func (c *Call) complete(res *types.Result, err error) bool {
	won := false
	c.once.Do(func() {
		if err != nil {
			res = nil
		}
		c.result = res
		c.err = err
		close(c.done)
		won = true
	})
	return won
}

// Done returns a channel that is closed when the call completes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes or ctx is done. Cancelling ctx
// only stops the wait; it does not cancel the request.
func (c *Call) Wait(ctx context.Context) (*types.Result, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a completed call, or ErrPending.
func (c *Call) Result() (*types.Result, error) {
	select {
	case <-c.done:
		return c.result, c.err
	default:
		return nil, ErrPending
	}
}
