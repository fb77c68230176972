// Package service is the process-level facade: it ties a transport, the
// local-id registry, and a set of core.Node instances together into the
// lifecycle spec.md §6 describes (construct, join, broadcast, poll/run,
// leave), so a caller never has to wire registry.Dispatch or Node.Tick
// by hand.
//
// Grounded on the teacher's protocol.go Unity type, which plays the
// equivalent role of "the one object an application holds" over the
// teacher's Invoker/transport/partition plumbing.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/config"
	"github.com/jabolina/plumcast/pkg/plumcast/core"
	"github.com/jabolina/plumcast/pkg/plumcast/definition"
	"github.com/jabolina/plumcast/pkg/plumcast/metrics"
	"github.com/jabolina/plumcast/pkg/plumcast/registry"
	"github.com/jabolina/plumcast/pkg/plumcast/transport"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// Service owns one transport and the registry of every local node
// running on top of it, plus the background loops that drive them
// (spec.md §4.6, C9 and C6 composed behind one entry point).
type Service struct {
	cfg config.ServiceConfig

	tport  transport.Transport
	reg    *registry.Registry
	logger types.Logger
	rec    metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	nodes map[types.NodeId]*core.Node
}

// New builds a Service over tport (an already-constructed transport:
// transport.NewLoopTransport for in-process use, transport.NewReltTransport
// for a real cluster). logger and rec may be nil, in which case a default
// logrus logger and a no-op Recorder are used.
func New(cfg config.ServiceConfig, tport transport.Transport, logger types.Logger, rec metrics.Recorder) *Service {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = definition.NewDefaultLogger()
	}
	if rec == nil {
		rec = metrics.NoOp
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:    cfg,
		tport:  tport,
		reg:    registry.New(addressOf(tport), tport, logger),
		logger: logger,
		rec:    rec,
		ctx:    ctx,
		cancel: cancel,
		nodes:  make(map[types.NodeId]*core.Node),
	}

	core.InvokerInstance().Spawn(s.dispatchLoop)
	core.InvokerInstance().Spawn(s.tickLoop)
	return s
}

// addressOf recovers a transport's own advertised address. Every
// Transport implementation in this module also satisfies Addressable;
// this narrow type assertion keeps the Service constructor from widening
// the Transport interface itself for a concern only the registry needs.
func addressOf(t transport.Transport) types.Address {
	if a, ok := t.(interface{ Address() types.Address }); ok {
		return a.Address()
	}
	return ""
}

// NewNode allocates a fresh NodeId from the registry, constructs a
// core.Node bound to it, and registers it so inbound casts reach it
// (spec.md §6.1 "construct").
func (s *Service) NewNode(opt core.NodeOptions) *core.Node {
	id := s.reg.GenerateNodeId()
	opt.Membership = config.MergeMembershipOptions(s.cfg.Membership.ToMembershipOptions(), opt.Membership)
	opt.Broadcast = config.MergeBroadcastOptions(s.cfg.Broadcast.ToBroadcastOptions(), opt.Broadcast)
	if opt.InboxCapacity <= 0 {
		opt.InboxCapacity = s.cfg.InboxCapacity
	}
	if opt.Metrics == nil {
		opt.Metrics = s.rec
	}

	n := core.NewNode(id, s.reg, s.logger, opt)

	s.mu.Lock()
	s.nodes[id] = n
	s.mu.Unlock()
	s.reg.RegisterLocalNode(nodeHandle{n})
	return n
}

// Leave drives n's Leave and removes it from the registry, so neither the
// dispatch loop nor the tick loop touches it again (spec.md §6.5).
func (s *Service) Leave(n *core.Node) {
	n.Leave()
	s.reg.DeregisterLocalNode(n.ID().LocalID)
	s.mu.Lock()
	delete(s.nodes, n.ID())
	s.mu.Unlock()
}

// Close stops the dispatch and tick loops and closes the underlying
// transport. Local nodes are not implicitly Left; callers that want a
// clean departure should call Leave on each node first.
func (s *Service) Close() error {
	s.cancel()
	return s.tport.Close()
}

func (s *Service) dispatchLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case env, ok := <-s.tport.Listen():
			if !ok {
				return
			}
			s.reg.Dispatch(env)
		}
	}
}

func (s *Service) tickLoop() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			nodes := make([]*core.Node, 0, len(s.nodes))
			for _, n := range s.nodes {
				nodes = append(nodes, n)
			}
			s.mu.Unlock()
			for _, n := range nodes {
				n.Tick(now)
			}
		}
	}
}

// nodeHandle adapts *core.Node to registry.NodeHandle.
type nodeHandle struct{ n *core.Node }

func (h nodeHandle) ID() types.NodeId             { return h.n.ID() }
func (h nodeHandle) Enqueue(rpc types.RpcMessage) { h.n.Enqueue(rpc) }

// JoinContacts parses every configured contact ("address/local-id") and
// joins n to each in turn, stopping at the first parse error. A node
// normally only needs one working contact; callers wanting a resilient
// bootstrap should list several and tolerate partial failures themselves.
func (s *Service) JoinContacts(n *core.Node) error {
	for _, raw := range s.cfg.Contacts {
		id, err := types.ParseNodeId(raw)
		if err != nil {
			return fmt.Errorf("service: joining %s: %w", raw, err)
		}
		n.Join(id)
	}
	return nil
}
