package broadcast

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// DuplicateRecorder is the narrow metrics capability the engine reports
// duplicate-GOSSIP drops through. metrics.Recorder satisfies this
// without the broadcast package needing to import metrics directly,
// matching the narrow-capability style of core.Sender.
type DuplicateRecorder interface {
	DuplicateDropped(node string)
}

type noopRecorder struct{}

func (noopRecorder) DuplicateDropped(string) {}

// Engine is a single node's Plumtree state machine. Not safe for
// concurrent use — the core drives exactly one Engine per node from a
// single execution context (spec.md §5), the same contract as Engine in
// the membership package.
type Engine struct {
	id  types.NodeId
	opt Options
	rec DuplicateRecorder

	eager peerset
	lazy  peerset

	// cache doubles as the "already delivered" dedup set and the store of
	// recently seen full messages needed to answer GRAFT requests.
	cache *lru.Cache[types.MessageId, types.Message]

	missing map[types.MessageId]*missingEntry

	actions []Action
}

// New constructs an Engine for id. rec may be nil, in which case
// duplicate-drop events are discarded.
func New(id types.NodeId, opt Options, rec DuplicateRecorder) *Engine {
	opt = opt.withDefaults()
	if rec == nil {
		rec = noopRecorder{}
	}
	cache, err := lru.New[types.MessageId, types.Message](opt.SeenCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// withDefaults already rules out.
		panic(err)
	}
	return &Engine{
		id:      id,
		opt:     opt,
		rec:     rec,
		eager:   newPeerset(),
		lazy:    newPeerset(),
		cache:   cache,
		missing: make(map[types.MessageId]*missingEntry),
	}
}

func (e *Engine) emit(a Action) {
	e.actions = append(e.actions, a)
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

// BroadcastMessage originates a broadcast. MUST be called exactly once
// per MessageId produced by this node (spec.md §4.3).
func (e *Engine) BroadcastMessage(msg types.Message) {
	e.cache.Add(msg.ID, msg)
	for _, peer := range e.eager.Items() {
		e.sendGossip(peer, msg, 0)
	}
	for _, peer := range e.lazy.Items() {
		e.sendIHave(peer, msg.ID, 0)
	}
}

// HandleNeighborUp adds n as an eager peer, the Plumtree default for a
// freshly established membership edge.
func (e *Engine) HandleNeighborUp(n types.NodeId) {
	e.lazy.Remove(n)
	e.eager.Add(n)
}

// HandleNeighborDown removes n from both peer sets and from any pending
// GRAFT announcer lists, so a dead peer is never retried.
func (e *Engine) HandleNeighborDown(n types.NodeId) {
	e.eager.Remove(n)
	e.lazy.Remove(n)
	for _, entry := range e.missing {
		kept := entry.announcers[:0]
		for _, a := range entry.announcers {
			if a != n {
				kept = append(kept, a)
			}
		}
		entry.announcers = kept
	}
}

// HandleProtocolMessage feeds a received broadcast protocol message.
func (e *Engine) HandleProtocolMessage(m ProtocolMessage) {
	switch m.Kind {
	case kindGossip:
		if m.Gossip != nil {
			e.handleGossip(*m.Gossip)
		}
	case kindIHave:
		if m.IHave != nil {
			e.handleIHave(*m.IHave)
		}
	case kindGraft:
		if m.Graft != nil {
			e.handleGraft(*m.Graft)
		}
	case kindPrune:
		if m.Prune != nil {
			e.handlePrune(*m.Prune)
		}
	}
}

func (e *Engine) handleGossip(m GossipMsg) {
	if _, ok := e.cache.Get(m.ID); ok {
		e.rec.DuplicateDropped(e.id.String())
		// Duplicate: this edge is redundant, demote it.
		if e.eager.Contains(m.Sender) {
			e.eager.Remove(m.Sender)
			e.lazy.Add(m.Sender)
			e.emit(Action{
				Kind:        ActionSend,
				Destination: m.Sender,
				Message:     ProtocolMessage{Kind: kindPrune, Prune: &PruneMsg{Sender: e.id}},
			})
		}
		return
	}

	msg := types.Message{ID: m.ID, Content: m.Content}
	e.cache.Add(m.ID, msg)
	delete(e.missing, m.ID)

	e.emit(Action{Kind: ActionDeliver, Deliver: msg})

	// A direct GOSSIP arrival is itself evidence of a healthy tree edge.
	if !e.eager.Contains(m.Sender) {
		e.eager.Add(m.Sender)
		e.lazy.Remove(m.Sender)
	}

	for _, peer := range e.eager.ItemsExcept(m.Sender) {
		e.sendGossip(peer, msg, m.Round+1)
	}
	for _, peer := range e.lazy.ItemsExcept(m.Sender) {
		e.sendIHave(peer, m.ID, m.Round+1)
	}
}

func (e *Engine) handleIHave(m IHaveMsg) {
	if _, ok := e.cache.Get(m.ID); ok {
		return
	}
	entry, ok := e.missing[m.ID]
	if !ok {
		entry = &missingEntry{deadline: time.Time{}}
		e.missing[m.ID] = entry
	}
	entry.addAnnouncer(m.Sender)
}

func (e *Engine) handleGraft(m GraftMsg) {
	e.lazy.Remove(m.Sender)
	e.eager.Add(m.Sender)
	if msg, ok := e.cache.Get(m.ID); ok {
		e.sendGossip(m.Sender, msg, 0)
	}
}

func (e *Engine) handlePrune(m PruneMsg) {
	e.eager.Remove(m.Sender)
	e.lazy.Add(m.Sender)
}

// Tick drives the missing-message graft retry ladder: a message
// announced via IHAVE but never received eagerly is grafted from its
// announcer after FirstGraftTimeout, retrying against the next announcer
// (round-robin) every RetryGraftTimeout thereafter.
func (e *Engine) Tick(now time.Time) {
	for id, entry := range e.missing {
		if _, ok := e.cache.Get(id); ok {
			delete(e.missing, id)
			continue
		}
		if entry.deadline.IsZero() {
			entry.deadline = now.Add(e.opt.FirstGraftTimeout)
			continue
		}
		if now.Before(entry.deadline) {
			continue
		}
		if next, ok := entry.nextAnnouncer(); ok {
			e.emit(Action{
				Kind:        ActionSend,
				Destination: next,
				Message:     ProtocolMessage{Kind: kindGraft, Graft: &GraftMsg{Sender: e.id, ID: id}},
			})
		}
		entry.deadline = now.Add(e.opt.RetryGraftTimeout)
	}
}

func (e *Engine) sendGossip(dest types.NodeId, msg types.Message, round int) {
	e.emit(Action{
		Kind:        ActionSend,
		Destination: dest,
		Message: ProtocolMessage{
			Kind:   kindGossip,
			Gossip: &GossipMsg{Sender: e.id, ID: msg.ID, Round: round, Content: msg.Content},
		},
	})
}

func (e *Engine) sendIHave(dest types.NodeId, id types.MessageId, round int) {
	e.emit(Action{
		Kind:        ActionSend,
		Destination: dest,
		Message:     ProtocolMessage{Kind: kindIHave, IHave: &IHaveMsg{Sender: e.id, ID: id, Round: round}},
	})
}
