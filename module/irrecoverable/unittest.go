package irrecoverable

import (
	"context"
	"runtime"
	"testing"
)

// MockSignalerContext is a SignalerContext for tests on which nothing may be thrown. A thrown
// error fails the test and ends the throwing goroutine.
type MockSignalerContext struct {
	context.Context
	t testing.TB
}

var _ SignalerContext = (*MockSignalerContext)(nil)

func (m *MockSignalerContext) sealed() {}

func (m *MockSignalerContext) Throw(err error) {
	m.t.Errorf("unexpected irrecoverable error: %v", err)
	runtime.Goexit()
}

func NewMockSignalerContext(t testing.TB, ctx context.Context) *MockSignalerContext {
	return &MockSignalerContext{Context: ctx, t: t}
}

// NewMockSignalerContextWithCancel returns a mock context cancelled by the returned function.
func NewMockSignalerContextWithCancel(t testing.TB, parent context.Context) (*MockSignalerContext, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	return NewMockSignalerContext(t, ctx), cancel
}
