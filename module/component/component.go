package component

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
	"github.com/witnessnet/witnessnet/module/util"
)

// ErrComponentShutdown is returned by a component which has already been shut down.
var ErrComponentShutdown = fmt.Errorf("component has already shut down")

// Component is a long running part of a witness node: a server, an automation loop, a set of
// started modules. Once started, its Done channel closes eventually, after a graceful shutdown
// or an irrecoverable error.
type Component interface {
	module.Startable
	module.ReadyDoneAware
}

type ComponentFactory func() (Component, error)

// OnError decides what RunComponent does after an irrecoverable error.
type OnError = func(err error) ErrorHandlingResult

type ErrorHandlingResult int

const (
	ErrorHandlingRestart ErrorHandlingResult = iota
	ErrorHandlingStop
)

// RunComponent runs components built by the factory until ctx is cancelled. A component throwing
// an irrecoverable error is shut down and the error handler decides whether a fresh instance is
// started.
//
// It returns the context error after a cancellation, the last handled error when the handler
// stops, or the factory error.
func RunComponent(ctx context.Context, componentFactory ComponentFactory, handler OnError) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := componentFactory()
		if err != nil {
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		signalCtx, errChan := irrecoverable.WithSignaler(runCtx)

		// Throw ends the calling goroutine
		go c.Start(signalCtx)

		err = util.WaitError(errChan, c.Done())
		cancel()
		<-c.Done()

		if err == nil {
			return ctx.Err()
		}

		switch result := handler(err); result {
		case ErrorHandlingRestart:
			continue
		case ErrorHandlingStop:
			return err
		default:
			panic(fmt.Sprintf("invalid error handling result: %v", result))
		}
	}
}

// ReadyFunc is called by a worker once it is ready.
type ReadyFunc func()

// ComponentWorker is one routine of a component. It must call ready once, and return when ctx
// is done. Irrecoverable errors are thrown on ctx.
type ComponentWorker func(ctx irrecoverable.SignalerContext, ready ReadyFunc)

// ComponentManagerBuilder collects the workers of a ComponentManager.
type ComponentManagerBuilder interface {
	AddWorker(ComponentWorker) ComponentManagerBuilder
	Build() *ComponentManager
}

type componentManagerBuilderImpl struct {
	workers []ComponentWorker
}

func NewComponentManagerBuilder() ComponentManagerBuilder {
	return &componentManagerBuilderImpl{}
}

// AddWorker adds a worker. It is not safe for concurrent use.
func (c *componentManagerBuilderImpl) AddWorker(worker ComponentWorker) ComponentManagerBuilder {
	c.workers = append(c.workers, worker)
	return c
}

// Build returns a manager running the workers added so far. Every manager built runs its own
// copy of each worker.
func (c *componentManagerBuilderImpl) Build() *ComponentManager {
	workers := make([]ComponentWorker, len(c.workers))
	copy(workers, c.workers)
	return &ComponentManager{
		started:        atomic.NewBool(false),
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
		workersDone:    make(chan struct{}),
		shutdownSignal: make(chan struct{}),
		workers:        workers,
	}
}

var _ Component = (*ComponentManager)(nil)

// ComponentManager runs a set of workers as one Component. Ready closes once every worker called
// its ReadyFunc; Done closes once every worker returned.
//
// Cancelling the context given to Start shuts the workers down. An irrecoverable error thrown by
// any worker shuts the others down too and is thrown on the parent context.
type ComponentManager struct {
	started        *atomic.Bool
	ready          chan struct{}
	done           chan struct{}
	workersDone    chan struct{}
	shutdownSignal chan struct{}

	workers []ComponentWorker
}

// Start launches the workers. It panics with module.ErrMultipleStartup when called twice.
func (c *ComponentManager) Start(parent irrecoverable.SignalerContext) {
	if !c.started.CompareAndSwap(false, true) {
		panic(module.ErrMultipleStartup)
	}

	ctx, cancel := context.WithCancel(parent)
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)

	go func() {
		<-ctx.Done()
		close(c.shutdownSignal)
	}()

	go func() {
		// the error reaches the parent before Done closes
		defer func() {
			<-c.workersDone
			close(c.done)
		}()
		if err := util.WaitError(errChan, c.workersDone); err != nil {
			cancel()
			parent.Throw(err)
		}
	}()

	var workersReady, workersDone sync.WaitGroup
	workersReady.Add(len(c.workers))
	workersDone.Add(len(c.workers))

	for _, worker := range c.workers {
		worker := worker
		go func() {
			defer workersDone.Done()
			var once sync.Once
			worker(signalerCtx, func() {
				once.Do(workersReady.Done)
			})
		}()
	}

	go func() {
		workersReady.Wait()
		close(c.ready)
	}()
	go func() {
		workersDone.Wait()
		close(c.workersDone)
	}()
}

// Ready closes once every worker is ready. It never closes if a worker returns before that.
func (c *ComponentManager) Ready() <-chan struct{} {
	return c.ready
}

// Done closes once every worker returned.
func (c *ComponentManager) Done() <-chan struct{} {
	return c.done
}

// ShutdownSignal closes when shutdown begins, after a cancellation or an irrecoverable error.
func (c *ComponentManager) ShutdownSignal() <-chan struct{} {
	return c.shutdownSignal
}

// LifecycleWorker starts m, reports ready once it accepts queries and stops it at shutdown. A
// module failing to start is irrecoverable.
func LifecycleWorker(m module.Lifecycle) ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready ReadyFunc) {
		if err := m.Start(ctx); err != nil {
			ctx.Throw(fmt.Errorf("could not start module: %w", err))
		}
		ready()
		<-ctx.Done()

		// the worker context is already cancelled
		if err := m.Stop(context.Background()); err != nil {
			ctx.Throw(fmt.Errorf("could not stop module: %w", err))
		}
	}
}
