package util

import (
	"context"
	"errors"
)

// ErrShutdown is the cause of a context from WithDone cancelled because its channel closed.
var ErrShutdown = errors.New("shutdown signalled")

// WithDone returns a context cancelled when done closes, in addition to when parent is. Its Err
// is ErrShutdown if done closed first.
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-done:
			cancel(ErrShutdown)
		case <-ctx.Done():
		}
	}()
	return &shutdownCtx{ctx}, func() { cancel(context.Canceled) }
}

type shutdownCtx struct {
	context.Context
}

func (c *shutdownCtx) Err() error {
	err := c.Context.Err()
	if err != nil && errors.Is(context.Cause(c.Context), ErrShutdown) {
		return ErrShutdown
	}
	return err
}
