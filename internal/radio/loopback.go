package radio

// Loopback is an in-process Radio used by unit tests and by cmd/dtrring's
// local ring simulator. It does not broadcast anywhere by itself: a test
// harness (internal/radiotest) wires each node's SendBroadcast to every
// other node's Inbound channel, modelling the single shared channel
// spec.md assumes.
type Loopback struct {
	inbound chan []byte
	send    func([]byte) error
}

// NewLoopback constructs a Loopback whose transmitted frames are handed to
// send (normally a fan-out closure supplied by the test/sim harness) and
// whose received frames are delivered by calling Deliver.
func NewLoopback(send func([]byte) error) *Loopback {
	return &Loopback{
		inbound: make(chan []byte, 64),
		send:    send,
	}
}

func (l *Loopback) SendBroadcast(raw []byte) error { return l.send(raw) }
func (l *Loopback) Inbound() <-chan []byte         { return l.inbound }
func (l *Loopback) Close() error                   { close(l.inbound); return nil }

// Deliver injects a received frame, as if it arrived over the air.
func (l *Loopback) Deliver(raw []byte) {
	l.inbound <- raw
}
