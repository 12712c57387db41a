package node

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

// AttachQuery asks a node to attach a registered module.
type AttachQuery struct {
	Schema   string `json:"schema"`
	Module   string `json:"module"`
	External bool   `json:"external,omitempty"`
}

// DetachQuery asks a node to detach a module.
type DetachQuery struct {
	Schema string `json:"schema"`
	Module string `json:"module"`
}

func (n *Node) handleAttach(ctx context.Context, _ *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error) {
	var query AttachQuery
	if err := q.Decode(&query); err != nil {
		return nil, err
	}
	if query.Module == "" {
		return nil, fmt.Errorf("attach query names no module")
	}
	addr, err := n.Attach(ctx, query.Module, query.External)
	if err != nil {
		return nil, err
	}
	return n.addressPayloads(addr), nil
}

func (n *Node) handleDetach(ctx context.Context, _ *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error) {
	var query DetachQuery
	if err := q.Decode(&query); err != nil {
		return nil, err
	}
	if query.Module == "" {
		return nil, fmt.Errorf("detach query names no module")
	}
	addr, err := n.Detach(ctx, query.Module)
	if err != nil {
		return nil, err
	}
	return n.addressPayloads(addr), nil
}

func (n *Node) handleAttached(context.Context, *boundwitness.QueryWrapper, payload.Payload) ([]payload.Payload, error) {
	return n.addressPayloads(n.Attached()...), nil
}

func (n *Node) handleRegistered(context.Context, *boundwitness.QueryWrapper, payload.Payload) ([]payload.Payload, error) {
	return n.addressPayloads(n.Registered()...), nil
}

func (n *Node) addressPayloads(addrs ...crypto.Address) []payload.Payload {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]payload.Payload, 0, len(addrs))
	for _, addr := range addrs {
		name := ""
		if m, ok := n.registered[addr]; ok {
			name = module.Name(m)
		}
		out = append(out, payload.NewAddress(addr, name))
	}
	return out
}
