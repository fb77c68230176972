package membership

import (
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// Engine is a single node's HyParView state machine: the active and
// passive views, and the queue of actions awaiting collection by the
// core. It is not safe for concurrent use — the core drives exactly one
// Engine per node from a single execution context (spec.md §5).
type Engine struct {
	id  types.NodeId
	opt Options

	active  *view
	passive *view

	actions []Action

	lastShuffle time.Time
}

// New constructs an Engine for id. Zero-value fields in opt are filled
// with HyParView's standard defaults.
func New(id types.NodeId, opt Options) *Engine {
	opt = opt.withDefaults()
	return &Engine{
		id:      id,
		opt:     opt,
		active:  newView(opt.ActiveViewSize),
		passive: newView(opt.PassiveViewSize),
	}
}

func (e *Engine) emit(a Action) {
	e.actions = append(e.actions, a)
}

// Join begins joining the cluster via contact (spec.md §4.2).
func (e *Engine) Join(contact types.NodeId) {
	e.emit(Action{
		Kind:        ActionSend,
		Destination: contact,
		Message:     ProtocolMessage{Kind: kindJoin, Join: &JoinMsg{Sender: e.id}},
	})
}

// ActiveView enumerates current neighbors.
func (e *Engine) ActiveView() []types.NodeId {
	return e.active.Items()
}

// PollAction draws the next pending action, if any.
func (e *Engine) PollAction() (Action, bool) {
	if len(e.actions) == 0 {
		return Action{}, false
	}
	a := e.actions[0]
	e.actions = e.actions[1:]
	return a, true
}

// HandleProtocolMessage feeds a received membership message, dispatching
// on its kind.
func (e *Engine) HandleProtocolMessage(m ProtocolMessage) {
	switch m.Kind {
	case kindJoin:
		if m.Join != nil {
			e.handleJoin(*m.Join)
		}
	case kindForwardJoin:
		if m.ForwardJoin != nil {
			e.handleForwardJoin(*m.ForwardJoin)
		}
	case kindNeighbor:
		if m.Neighbor != nil {
			e.handleNeighbor(*m.Neighbor)
		}
	case kindNeighborReply:
		if m.NeighborReply != nil {
			e.handleNeighborReply(*m.NeighborReply)
		}
	case kindDisconnect:
		if m.Disconnect != nil {
			e.handleDisconnect(*m.Disconnect)
		}
	case kindShuffleRequest:
		if m.ShuffleReq != nil {
			e.handleShuffleRequest(*m.ShuffleReq)
		}
	case kindShuffleReply:
		if m.ShuffleReply != nil {
			e.handleShuffleReply(*m.ShuffleReply)
		}
	}
}

func (e *Engine) handleJoin(m JoinMsg) {
	if m.Sender == e.id {
		return
	}
	e.addActive(m.Sender)
	e.emit(Action{
		Kind:        ActionSend,
		Destination: m.Sender,
		Message: ProtocolMessage{
			Kind:     kindNeighbor,
			Neighbor: &NeighborMsg{Sender: e.id, Priority: true},
		},
	})
	for _, peer := range e.active.Items() {
		if peer == m.Sender {
			continue
		}
		e.emit(Action{
			Kind:        ActionSend,
			Destination: peer,
			Message: ProtocolMessage{
				Kind: kindForwardJoin,
				ForwardJoin: &ForwardJoinMsg{
					Sender:  e.id,
					NewNode: m.Sender,
					TTL:     e.opt.ARWL,
				},
			},
		})
	}
}

func (e *Engine) handleForwardJoin(m ForwardJoinMsg) {
	if m.NewNode == e.id || e.active.Contains(m.NewNode) {
		return
	}

	others := e.activeExcept(m.Sender)
	if m.TTL == 0 || len(others) == 0 {
		e.addActive(m.NewNode)
		e.emit(Action{
			Kind:        ActionSend,
			Destination: m.NewNode,
			Message: ProtocolMessage{
				Kind:     kindNeighbor,
				Neighbor: &NeighborMsg{Sender: e.id, Priority: e.active.Len() == 1},
			},
		})
		return
	}

	if m.TTL == e.opt.PRWL {
		e.passive.Add(m.NewNode)
	}

	next := others[e.opt.RNG.Intn(len(others))]
	e.emit(Action{
		Kind:        ActionSend,
		Destination: next,
		Message: ProtocolMessage{
			Kind: kindForwardJoin,
			ForwardJoin: &ForwardJoinMsg{
				Sender:  e.id,
				NewNode: m.NewNode,
				TTL:     m.TTL - 1,
			},
		},
	})
}

func (e *Engine) handleNeighbor(m NeighborMsg) {
	accept := m.Priority || !e.active.Full()
	if accept {
		e.addActive(m.Sender)
	}
	e.emit(Action{
		Kind:        ActionSend,
		Destination: m.Sender,
		Message: ProtocolMessage{
			Kind:          kindNeighborReply,
			NeighborReply: &NeighborReplyMsg{Sender: e.id, Accepted: accept},
		},
	})
}

func (e *Engine) handleNeighborReply(m NeighborReplyMsg) {
	if !m.Accepted {
		e.passive.Add(m.Sender)
		return
	}
	e.addActive(m.Sender)
}

func (e *Engine) handleDisconnect(m DisconnectMsg) {
	if !e.active.Remove(m.Sender) {
		return
	}
	e.passive.Add(m.Sender)
	e.emit(Action{Kind: ActionNotify, Event: NeighborDown, Peer: m.Sender})
	e.emit(Action{Kind: ActionDisconnect, Disconnected: m.Sender})
}

func (e *Engine) handleShuffleRequest(m ShuffleRequestMsg) {
	for _, id := range m.Sample {
		if id != e.id && !e.active.Contains(id) {
			e.passive.Add(id)
		}
	}
	if m.TTL > 0 {
		if next := e.randomActiveExcept(m.Sender); !next.IsZero() {
			m.TTL--
			e.emit(Action{
				Kind:        ActionSend,
				Destination: next,
				Message:     ProtocolMessage{Kind: kindShuffleRequest, ShuffleReq: &m},
			})
			return
		}
	}
	e.emit(Action{
		Kind:        ActionSend,
		Destination: m.Origin,
		Message: ProtocolMessage{
			Kind:         kindShuffleReply,
			ShuffleReply: &ShuffleReplyMsg{Sender: e.id, Sample: e.passive.Sample(e.opt.RNG, e.opt.ShuffleSampleSize)},
		},
	})
}

func (e *Engine) handleShuffleReply(m ShuffleReplyMsg) {
	for _, id := range m.Sample {
		if id != e.id && !e.active.Contains(id) {
			e.passive.Add(id)
		}
	}
}

// Tick drives periodic maintenance: filling the active view from the
// passive view when it is empty, and shuffling passive-view samples
// with a random active peer. Cadence is the caller's responsibility
// (spec.md §9: "left as a tunable").
func (e *Engine) Tick(now time.Time) {
	if e.active.Len() == 0 {
		if candidate, ok := e.passive.Random(e.opt.RNG); ok {
			e.passive.Remove(candidate)
			e.emit(Action{
				Kind:        ActionSend,
				Destination: candidate,
				Message: ProtocolMessage{
					Kind:     kindNeighbor,
					Neighbor: &NeighborMsg{Sender: e.id, Priority: true},
				},
			})
		}
	}

	if e.lastShuffle.IsZero() {
		e.lastShuffle = now
		return
	}
	if now.Sub(e.lastShuffle) < e.opt.ShuffleInterval {
		return
	}
	e.lastShuffle = now

	peer, ok := e.active.Random(e.opt.RNG)
	if !ok {
		return
	}
	sample := e.active.Sample(e.opt.RNG, e.opt.ShuffleSampleSize)
	sample = append(sample, e.passive.Sample(e.opt.RNG, e.opt.ShuffleSampleSize)...)
	e.emit(Action{
		Kind:        ActionSend,
		Destination: peer,
		Message: ProtocolMessage{
			Kind: kindShuffleRequest,
			ShuffleReq: &ShuffleRequestMsg{
				Sender: e.id,
				Origin: e.id,
				Sample: sample,
				TTL:    e.opt.ShuffleTTL,
			},
		},
	})
}

// addActive adds id to the active view, evicting a random member (and
// demoting it to the passive view) if the view is already full.
func (e *Engine) addActive(id types.NodeId) {
	if id == e.id || e.active.Contains(id) {
		return
	}
	if e.active.Full() {
		victim, ok := e.active.Random(e.opt.RNG)
		if ok {
			e.active.Remove(victim)
			e.passive.Add(victim)
			e.emit(Action{
				Kind:        ActionSend,
				Destination: victim,
				Message:     ProtocolMessage{Kind: kindDisconnect, Disconnect: &DisconnectMsg{Sender: e.id}},
			})
			e.emit(Action{Kind: ActionNotify, Event: NeighborDown, Peer: victim})
			e.emit(Action{Kind: ActionDisconnect, Disconnected: victim})
		}
	}
	e.active.Add(id)
	e.passive.Remove(id)
	e.emit(Action{Kind: ActionNotify, Event: NeighborUp, Peer: id})
}

func (e *Engine) activeExcept(id types.NodeId) []types.NodeId {
	items := e.active.Items()
	out := items[:0:0]
	for _, p := range items {
		if p != id {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) randomActiveExcept(id types.NodeId) types.NodeId {
	items := e.activeExcept(id)
	if len(items) == 0 {
		return types.NodeId{}
	}
	return items[e.opt.RNG.Intn(len(items))]
}
