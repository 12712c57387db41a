package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
	"github.com/witnessnet/witnessnet/module/resolver"
)

const (
	ConfigSchema = "network.xyo.node.config"

	AttachQuerySchema     = "network.xyo.query.node.attach"
	AttachedQuerySchema   = "network.xyo.query.node.attached"
	DetachQuerySchema     = "network.xyo.query.node.detach"
	RegisteredQuerySchema = "network.xyo.query.node.registered"
)

// Node is a module owning a registry of child modules. Registering a module makes it known to the
// node; attaching it wires it into the resolution graph, either privately (visible to the node
// and its other children) or externally (also visible to whoever resolves through the node).
//
// Registry and resolver slot mutations happen under one lock. Events are emitted after the lock
// is released.
type Node struct {
	*base.Base

	mu         sync.RWMutex
	registered map[crypto.Address]module.Module
	order      []crypto.Address
	attached   map[crypto.Address]*attachment
	pending    map[crypto.Address]struct{}
	private    *resolver.Composite
}

var _ module.Node = (*Node)(nil)

// New creates an in-memory node. A nil account is replaced by a random one.
func New(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Node, error) {
	if config.Schema == "" {
		config.Schema = ConfigSchema
	}

	n := &Node{
		registered: make(map[crypto.Address]module.Module),
		attached:   make(map[crypto.Address]*attachment),
		pending:    make(map[crypto.Address]struct{}),
	}
	handlers := base.Handlers{
		AttachQuerySchema:     n.handleAttach,
		AttachedQuerySchema:   n.handleAttached,
		DetachQuerySchema:     n.handleDetach,
		RegisteredQuerySchema: n.handleRegistered,
	}

	b, err := base.New(log, account, config, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create node: %w", err)
	}
	n.Base = b
	n.private = resolver.NewComposite(b.Logger())
	n.SetModule(n)

	return n, nil
}

// PrivateResolver sees every attached child, external or not.
func (n *Node) PrivateResolver() module.CompositeResolver {
	return n.private
}

// Register adds m to the registry. It does not make m visible to anyone.
func (n *Node) Register(m module.Module) error {
	n.mu.Lock()
	if _, ok := n.registered[m.Address()]; ok {
		n.mu.Unlock()
		return module.NewDuplicateAddressError(m.Address())
	}
	n.registered[m.Address()] = m
	n.order = append(n.order, m.Address())
	n.mu.Unlock()

	logger := n.Logger()
	logger.Debug().Str("child", m.Address().Hex()).Str("name", module.Name(m)).Msg("module registered")
	n.Emit(module.Event{Kind: module.ModuleRegistered, Module: m})
	return nil
}

// Unregister detaches m if it is attached and removes it from the registry, in one step.
func (n *Node) Unregister(ctx context.Context, m module.Module) error {
	addr := m.Address()

	n.mu.Lock()
	if _, ok := n.registered[addr]; !ok {
		n.mu.Unlock()
		return fmt.Errorf("could not unregister %s: %w", addr, module.ErrNotRegistered)
	}
	a, attached := n.unwire(addr)
	delete(n.registered, addr)
	for i, registered := range n.order {
		if registered == addr {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	if attached {
		n.detached(ctx, a)
	}
	logger := n.Logger()
	logger.Debug().Str("child", addr.Hex()).Msg("module unregistered")
	n.Emit(module.Event{Kind: module.ModuleUnregistered, Module: m})
	return nil
}

// Registered lists registered addresses in registration order.
func (n *Node) Registered() []crypto.Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]crypto.Address, len(n.order))
	copy(out, n.order)
	return out
}

// Attached lists attached addresses in registration order.
func (n *Node) Attached() []crypto.Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]crypto.Address, 0, len(n.attached))
	for _, addr := range n.order {
		if _, ok := n.attached[addr]; ok {
			out = append(out, addr)
		}
	}
	return out
}

// Resolve finds modules through the up, down and private slots selected by direction. Each slot
// is resolved against its own snapshot; the node lock is not held, so slow resolvers never stall
// attach and detach.
func (n *Node) Resolve(ctx context.Context, filter module.Filter, direction module.Direction) ([]module.Module, error) {
	var slots []module.Resolver
	if direction.Includes(module.DirectionUp) {
		slots = append(slots, n.UpResolver())
	}
	if direction.Includes(module.DirectionDown) {
		slots = append(slots, n.DownResolver())
	}
	if direction.Includes(module.DirectionPrivate) {
		slots = append(slots, n.private)
	}

	return n.ResolveThrough(ctx, filter, direction, slots...)
}

// Discover adds the addresses of externally attached children to the module description.
func (n *Node) Discover(ctx context.Context) ([]payload.Payload, error) {
	out, err := n.Base.Discover(ctx)
	if err != nil {
		return nil, err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, addr := range n.order {
		a, ok := n.attached[addr]
		if !ok || !a.external {
			continue
		}
		out = append(out, payload.NewAddress(addr, module.Name(a.module)))
	}
	return out, nil
}

// lookup finds a registered module by address or by configured name. Callers hold the lock.
func (n *Node) lookup(ref string) (module.Module, bool) {
	if addr, err := crypto.HexToAddress(ref); err == nil {
		m, ok := n.registered[addr]
		return m, ok
	}
	for _, addr := range n.order {
		m := n.registered[addr]
		if module.Name(m) == ref {
			return m, true
		}
	}
	return nil, false
}
