package util

import (
	"context"
)

// WaitReady blocks until ready closes or ctx is done. It returns nil when ready closed, even if
// ctx is done as well, and the context error otherwise.
func WaitReady(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}
	select {
	case <-ready:
		return nil
	default:
		return ctx.Err()
	}
}

// WaitError blocks until an error arrives on errChan or done closes. An error already pending
// when done closes is still returned, so a component failing while it shuts down is not
// mistaken for a clean stop.
func WaitError(errChan <-chan error, done <-chan struct{}) error {
	select {
	case err := <-errChan:
		return err
	case <-done:
	}
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}
