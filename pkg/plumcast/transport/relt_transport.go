package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// reltTransport is the network Transport, wrapping a single relt group
// member per listen address. Grounded directly on the teacher's
// pkg/mcast/core/transport.go ReliableTransport: same relt.NewRelt /
// relt.Consume / relt.Broadcast plumbing and the same poll-goroutine
// shape, adapted from reliable-multicast-to-a-partition semantics to
// plumcast's per-destination unicast casts (relt.Send addresses a single
// group member rather than the whole partition).
type reltTransport struct {
	log types.Logger

	relt *relt.Relt

	producer chan Envelope

	ctx    context.Context
	cancel context.CancelFunc

	self    types.Address
	closeMu sync.Once
}

// NewReltTransport opens a relt-backed transport advertising as self.
func NewReltTransport(self types.Address, log types.Logger) (Transport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = string(self)
	conf.Exchange = relt.GroupAddress(self)

	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &reltTransport{
		log:      log,
		relt:     r,
		producer: make(chan Envelope, defaultQueueDepth),
		ctx:      ctx,
		cancel:   cancel,
		self:     self,
	}
	go t.poll()
	return t, nil
}

// Address reports the address this transport advertises as, for use as
// the Address field of NodeIds minted on top of it.
func (t *reltTransport) Address() types.Address { return t.self }

// Send implements Transport. The procedure ID is computed purely to
// label the debug log line; relt itself addresses peers by group, not by
// procedure, so the procedure ID is not carried on the wire. The payload
// is the (local-id, RpcMessage) wireEnvelope.
func (t *reltTransport) Send(ctx context.Context, dest types.NodeId, msg types.RpcMessage) error {
	data, err := json.Marshal(wireEnvelope{LocalID: dest.LocalID, RPC: msg})
	if err != nil {
		t.log.Errorf("transport %s: failed marshalling cast to %s: %v", t.self, dest, err)
		return err
	}

	proc := procedureFor(msg)
	t.log.Debugf("transport %s: casting procedure %#x (priority %d) to %s", t.self, uint32(proc), procedureTable[proc].priority, dest)

	send := relt.Send{
		Address: relt.GroupAddress(dest.Address),
		Data:    data,
	}
	return t.relt.Broadcast(ctx, send)
}

// Listen implements Transport.
func (t *reltTransport) Listen() <-chan Envelope { return t.producer }

// Close implements Transport.
func (t *reltTransport) Close() error {
	var err error
	t.closeMu.Do(func() {
		t.cancel()
		err = t.relt.Close()
	})
	return err
}

// wireEnvelope is the pair relt actually carries on the wire: the target
// local-id plus the RpcMessage (spec.md §4.5: "the notification on the
// wire is the pair (local_id, protocol-message)").
type wireEnvelope struct {
	LocalID uint64          `json:"local_id"`
	RPC     types.RpcMessage `json:"rpc"`
}

func (t *reltTransport) poll() {
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Fatalf("transport %s: failed starting consume loop: %v", t.self, err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.consume(recv.Origin, relt.Recv{Data: recv.Data, Error: recv.Error})
		}
	}
}

func (t *reltTransport) consume(origin string, recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("transport %s: failed consuming from %s: %v", t.self, origin, recv.Error)
		return
	}
	if recv.Data == nil {
		return
	}

	var w wireEnvelope
	if err := json.Unmarshal(recv.Data, &w); err != nil {
		t.log.Errorf("transport %s: failed unmarshalling cast from %s: %v", t.self, origin, err)
		return
	}

	env := Envelope{
		From: types.Address(origin),
		To:   types.NodeId{Address: t.self, LocalID: w.LocalID},
		RPC:  w.RPC,
	}
	select {
	case t.producer <- env:
	case <-t.ctx.Done():
	}
}
