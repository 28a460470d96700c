// Package radio is the radio adapter collaborator of spec.md §4.H/§6: the
// engine only ever talks to the Radio interface, never to a concrete
// transport. Several backends satisfy it (see loopback.go, serial.go,
// gpio_linux.go, hamlib.go, afsk.go, net.go); each models the same
// contract the spec gives the physical driver: best-effort, unacknowledged,
// single-channel, addressed to all peers.
package radio

import "context"

// Radio is what the engine needs from the physical (or simulated) channel.
type Radio interface {
	// SendBroadcast serializes and transmits raw to every peer. It is
	// best-effort: a returned error means the local transmit attempt
	// itself failed (e.g. device I/O error), not that delivery is
	// unconfirmed — DTR has no link-layer ACK by design.
	SendBroadcast(raw []byte) error

	// Inbound delivers every received broadcast, including ones this node
	// itself sent (callers filter those by source_id). It is closed when
	// the radio is shut down.
	Inbound() <-chan []byte

	// Close releases any underlying resources (device handles, sockets,
	// goroutines).
	Close() error
}

// sendContext names the context type for a transmit primitive that can
// block (e.g. hamlib's rigctld round trip). SendBroadcast takes no context,
// and no backend in this package refers to sendContext.
type sendContext = context.Context
