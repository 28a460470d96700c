package radio

import (
	"sync"

	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
)

// dedupKey is the single-slot fingerprint spec.md §4.H/§9 compares inbound
// frames against: (message_type, source_id, target_id). This is
// deliberately not a full sliding-window deduper — it only catches the
// immediately-preceding frame — because end-to-end dedup for data frames
// additionally relies on the engine's last_packet_source_id check
// (spec.md §4.F, RX_IDLE).
type dedupKey struct {
	msgType          dtrpkt.MessageType
	sourceID, targetID byte
}

// Dedup wraps a Radio, applying the inbound duplicate filter of spec.md
// §4.H in front of every backend: a HANDSHAKE_FRAME always bypasses the
// filter (handshake relies on repeated identical broadcasts to converge),
// everything else is dropped if it repeats the immediately preceding
// delivered frame's (type, source, target) and the downstream queue is
// still non-empty.
type Dedup struct {
	inner Radio

	mu       sync.Mutex
	lastKey  dedupKey
	hasLast  bool
	queuePending func() bool // reports whether RX-SRV is still non-empty

	out chan []byte
	done chan struct{}
}

// NewDedup wraps inner. queuePending must report whether the consumer's
// RX-SRV queue currently holds at least one packet; it is consulted to
// decide whether a repeat counts as a duplicate, exactly as spec.md §4.H
// specifies ("drop if ... RX-SRV is non-empty").
func NewDedup(inner Radio, queuePending func() bool) *Dedup {
	d := &Dedup{
		inner:        inner,
		queuePending: queuePending,
		out:          make(chan []byte, 1),
		done:         make(chan struct{}),
	}

	go d.pump()

	return d
}

func (d *Dedup) pump() {
	defer close(d.out)

	for raw := range d.inner.Inbound() {
		if d.accept(raw) {
			select {
			case d.out <- raw:
			case <-d.done:
				return
			}
		}
	}
}

func (d *Dedup) accept(raw []byte) bool {
	p, err := dtrpkt.Decode(raw)
	if err != nil {
		return false // malformed frame: dropped silently, spec.md §4.A/§7
	}

	if p.MessageType == dtrpkt.HandshakeFrame {
		return true // handshake bypasses the dedup filter, spec.md §4.H
	}

	key := dedupKey{msgType: p.MessageType, sourceID: p.SourceID, targetID: p.TargetID}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasLast && d.lastKey == key && d.queuePending() {
		return false
	}

	d.lastKey = key
	d.hasLast = true

	return true
}

func (d *Dedup) SendBroadcast(raw []byte) error { return d.inner.SendBroadcast(raw) }
func (d *Dedup) Inbound() <-chan []byte         { return d.out }

func (d *Dedup) Close() error {
	close(d.done)

	return d.inner.Close()
}
