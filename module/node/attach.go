package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/module"
)

// attachment records the wiring made for one attached child, so detaching undoes exactly that.
type attachment struct {
	module   module.Module
	external bool

	// resolvers added to the child's up resolver
	up []module.Resolver
	// node slots the child's down resolver was added to
	exposed []module.CompositeResolver

	// nested node event forwarding
	sub  module.Subscription
	done chan struct{}

	mu       sync.Mutex
	notified []module.Module
	seen     map[crypto.Address]struct{}
}

// notify records a descendant about to be announced. It reports false for the node itself, the
// attached child and descendants already announced.
func (a *attachment) notify(self crypto.Address, m module.Module) bool {
	addr := m.Address()
	if addr == self || addr == a.module.Address() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[addr]; ok {
		return false
	}
	a.seen[addr] = struct{}{}
	a.notified = append(a.notified, m)
	return true
}

// forget drops an announced descendant and reports whether it was announced.
func (a *attachment) forget(addr crypto.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[addr]; !ok {
		return false
	}
	delete(a.seen, addr)
	for i, m := range a.notified {
		if m.Address() == addr {
			a.notified = append(a.notified[:i], a.notified[i+1:]...)
			break
		}
	}
	return true
}

// drain returns every descendant still announced and forgets them.
func (a *attachment) drain() []module.Module {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.notified
	a.notified = nil
	a.seen = make(map[crypto.Address]struct{})
	return out
}

// Attach wires a registered module, found by address or name, into the resolution graph. The
// child sees the node's private, down and up resolvers. An external child is also exposed through
// the node's down resolver.
//
// When the child is itself a node, its attach and detach events are re-emitted by this node, and
// its existing descendants are announced once the child is attached.
//
// Resolving whether something already sits at the child's address happens outside the lock; the
// address is reserved meanwhile so concurrent attaches of the same module fail.
func (n *Node) Attach(ctx context.Context, ref string, external bool) (crypto.Address, error) {
	n.mu.Lock()
	child, ok := n.lookup(ref)
	if !ok {
		n.mu.Unlock()
		return crypto.Address{}, fmt.Errorf("could not attach %s: %w", ref, module.ErrNotRegistered)
	}
	addr := child.Address()
	if _, ok := n.attached[addr]; ok {
		n.mu.Unlock()
		return crypto.Address{}, module.NewAlreadyAttachedError(addr)
	}
	if _, ok := n.pending[addr]; ok {
		n.mu.Unlock()
		return crypto.Address{}, module.NewAlreadyAttachedError(addr)
	}
	n.pending[addr] = struct{}{}
	n.mu.Unlock()

	existing, err := n.resolveAttached(ctx, addr)

	n.mu.Lock()
	delete(n.pending, addr)
	if err != nil {
		n.mu.Unlock()
		return crypto.Address{}, fmt.Errorf("could not check attachment of %s: %w", addr, err)
	}
	if existing {
		n.mu.Unlock()
		return crypto.Address{}, module.NewAlreadyAttachedError(addr)
	}
	if n.registered[addr] != child {
		n.mu.Unlock()
		return crypto.Address{}, fmt.Errorf("could not attach %s: %w", addr, module.ErrNotRegistered)
	}

	a := &attachment{
		module:   child,
		external: external,
		up:       []module.Resolver{n.private, n.DownResolver(), n.UpResolver()},
		exposed:  []module.CompositeResolver{n.private},
		seen:     make(map[crypto.Address]struct{}),
	}
	if external {
		a.exposed = append(a.exposed, n.DownResolver())
	}

	child.UpResolver().Add(a.up...)
	for _, slot := range a.exposed {
		slot.Add(child.DownResolver())
	}
	n.attached[addr] = a

	nested, isNode := child.(module.Node)
	if isNode {
		a.sub = nested.Subscribe(module.ModuleAttached, module.ModuleDetached)
		a.done = make(chan struct{})
	}
	n.mu.Unlock()

	logger := n.Logger()
	logger.Info().
		Str("child", addr.Hex()).
		Str("name", module.Name(child)).
		Bool("external", external).
		Msg("module attached")
	n.Emit(module.Event{Kind: module.ModuleAttached, Module: child})

	if isNode {
		go n.forward(a)
		n.announceDescendants(ctx, a)
	}

	return addr, nil
}

// resolveAttached reports whether anything resolves at addr through the node's private or down
// slots. Callers must not hold the lock.
func (n *Node) resolveAttached(ctx context.Context, addr crypto.Address) (bool, error) {
	filter := module.Filter{Address: []crypto.Address{addr}}
	for _, slot := range []module.Resolver{n.private, n.DownResolver()} {
		found, err := slot.Resolve(ctx, filter)
		if err != nil {
			return false, err
		}
		if len(found) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// announceDescendants emits ModuleAttached for everything already visible below a child node.
func (n *Node) announceDescendants(ctx context.Context, a *attachment) {
	descendants, err := a.module.DownResolver().Resolve(ctx, module.Filter{})
	if err != nil {
		logger := n.Logger()
		logger.Warn().Err(err).Str("child", a.module.Address().Hex()).Msg("could not enumerate descendants")
		return
	}
	for _, d := range descendants {
		if a.notify(n.Address(), d) {
			n.Emit(module.Event{Kind: module.ModuleAttached, Module: d})
		}
	}
}

// forward re-emits the attach and detach events of a child node until its subscription closes.
func (n *Node) forward(a *attachment) {
	defer close(a.done)
	for ev := range a.sub.Events() {
		if ev.Module == nil {
			continue
		}
		switch ev.Kind {
		case module.ModuleAttached:
			if a.notify(n.Address(), ev.Module) {
				n.Emit(module.Event{Kind: module.ModuleAttached, Module: ev.Module})
			}
		case module.ModuleDetached:
			if a.forget(ev.Module.Address()) {
				n.Emit(module.Event{Kind: module.ModuleDetached, Module: ev.Module})
			}
		}
	}
}

// Detach reverses the wiring made when the module was attached. Descendants announced through a
// child node are announced as detached too.
func (n *Node) Detach(ctx context.Context, ref string) (crypto.Address, error) {
	n.mu.Lock()
	child, ok := n.lookup(ref)
	if !ok {
		n.mu.Unlock()
		return crypto.Address{}, fmt.Errorf("could not detach %s: %w", ref, module.ErrNotRegistered)
	}
	a, ok := n.unwire(child.Address())
	n.mu.Unlock()
	if !ok {
		return crypto.Address{}, fmt.Errorf("could not detach %s: %w", child.Address(), module.ErrNotAttached)
	}

	n.detached(ctx, a)
	return child.Address(), nil
}

// unwire removes the wiring recorded for addr. Callers hold the lock.
func (n *Node) unwire(addr crypto.Address) (*attachment, bool) {
	a, ok := n.attached[addr]
	if !ok {
		return nil, false
	}
	a.module.UpResolver().Remove(a.up...)
	for _, slot := range a.exposed {
		slot.Remove(a.module.DownResolver())
	}
	delete(n.attached, addr)
	return a, true
}

// detached stops event forwarding for an unwired child and announces it and its descendants.
// Callers must not hold the lock.
func (n *Node) detached(ctx context.Context, a *attachment) {
	addr := a.module.Address()
	if a.sub != nil {
		a.sub.Close()
		select {
		case <-a.done:
		case <-ctx.Done():
			logger := n.Logger()
			logger.Warn().Err(ctx.Err()).Str("child", addr.Hex()).Msg("event forwarding did not stop in time")
		}
	}

	logger := n.Logger()
	logger.Info().Str("child", addr.Hex()).Str("name", module.Name(a.module)).Msg("module detached")
	n.Emit(module.Event{Kind: module.ModuleDetached, Module: a.module})

	for _, descendant := range a.drain() {
		n.Emit(module.Event{Kind: module.ModuleDetached, Module: descendant})
	}
}
