// Package irrecoverable carries errors a component cannot recover from out to whoever runs it.
// Workers throw on their context instead of returning; the runner decides between a restart
// and a shutdown.
package irrecoverable

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// SignalerContext is a context a worker can throw an irrecoverable error on.
type SignalerContext interface {
	context.Context
	// Throw reports err and ends the calling goroutine. Only the first error is kept.
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	once    *sync.Once
	errChan chan error
}

func (signalerCtx) sealed() {}

func (c signalerCtx) Throw(err error) {
	c.once.Do(func() {
		c.errChan <- err
		close(c.errChan)
	})
	runtime.Goexit()
}

// WithSignaler derives a SignalerContext from parent. The channel yields the first thrown error,
// then closes.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	errChan := make(chan error, 1)
	return signalerCtx{Context: parent, once: new(sync.Once), errChan: errChan}, errChan
}

// exception marks a failure of the storage or runtime beneath a module, as opposed to a
// rejected input.
type exception struct {
	err error
}

func (e exception) Error() string { return "exception: " + e.err.Error() }

func (e exception) Unwrap() error { return e.err }

func NewExceptionf(msg string, args ...interface{}) error {
	return exception{err: fmt.Errorf(msg, args...)}
}

func IsException(err error) bool {
	var e exception
	return errors.As(err, &e)
}
