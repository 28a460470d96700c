// Package radiotest builds an in-process shared broadcast medium out of
// radio.Loopback instances, standing in for the single wireless channel
// spec.md assumes, for both engine/root-package tests and cmd/dtrring's
// manual ring simulator.
package radiotest

import (
	"sync"

	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
	"github.com/kjell-dtr/dtr-go/internal/radio"
)

// Medium fans each member's transmission out to every other member's
// Deliver, exactly as a shared radio channel would: every node hears every
// other node's (and, per spec.md §4.H, its own) broadcasts. It also keeps a
// decoded wire trace, so tests can assert on frame order the way spec.md
// §8's scenarios are written (e.g. "A->B DATA(66), B->A DATA_ACK, ...").
type Medium struct {
	mu      sync.Mutex
	members []*radio.Loopback
	trace   []dtrpkt.Packet
}

// NewMedium returns an empty shared medium.
func NewMedium() *Medium {
	return &Medium{}
}

// NewNode builds a Loopback radio attached to this medium and registers it
// as a member.
func (m *Medium) NewNode() *radio.Loopback {
	m.mu.Lock()
	defer m.mu.Unlock()

	var node *radio.Loopback
	node = radio.NewLoopback(func(raw []byte) error {
		m.fanOut(node, raw)

		return nil
	})
	m.members = append(m.members, node)

	return node
}

func (m *Medium) fanOut(from *radio.Loopback, raw []byte) {
	m.mu.Lock()
	members := make([]*radio.Loopback, len(m.members))
	copy(members, m.members)
	if pkt, err := dtrpkt.Decode(raw); err == nil {
		m.trace = append(m.trace, pkt)
	}
	m.mu.Unlock()

	for _, n := range members {
		n.Deliver(raw)
	}

	_ = from // every member, including the sender, receives its own broadcast
}

// Trace returns a snapshot of every frame broadcast on the medium so far,
// in transmission order.
func (m *Medium) Trace() []dtrpkt.Packet {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]dtrpkt.Packet, len(m.trace))
	copy(cp, m.trace)

	return cp
}
