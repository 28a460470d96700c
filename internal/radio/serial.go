// Serial-attached radio modem transport. Frames are length-prefixed with
// their own packet_size byte (spec.md §3 already gives every frame a
// self-describing length, so no extra framing is needed) and written/read
// directly from an io.ReadWriteCloser representing either a real serial
// port (github.com/pkg/term), one end of a github.com/creack/pty pair
// standing in for the lossy broadcast channel in tests, or any other
// byte-stream transport.
package radio

import (
	"bufio"
	"io"
	"sync"

	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
)

// Serial is a Radio backed by a framed byte stream (a real TTY or a pty).
type Serial struct {
	rw  io.ReadWriteCloser
	r   *bufio.Reader
	wmu sync.Mutex

	inbound chan []byte
	done    chan struct{}
}

// NewSerial wraps an already-open serial device, pty endpoint, or other
// byte stream.
func NewSerial(rw io.ReadWriteCloser) *Serial {
	s := &Serial{
		rw:      rw,
		r:       bufio.NewReader(rw),
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}

	go s.readLoop()

	return s
}

func (s *Serial) SendBroadcast(raw []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_, err := s.rw.Write(raw)

	return err
}

func (s *Serial) Inbound() <-chan []byte { return s.inbound }

func (s *Serial) Close() error {
	close(s.done)
	close(s.inbound)

	return s.rw.Close()
}

// readLoop reads the self-describing packet_size byte and then the rest of
// the frame, forwarding whole frames to Inbound. A size byte out of range is
// discarded and the next byte tried as a size (the same "drop silently"
// policy spec.md §7 applies to malformed frames); a read error or EOF,
// including mid-frame, ends the loop.
func (s *Serial) readLoop() {
	for {
		sizeByte, err := s.r.ReadByte()
		if err != nil {
			return
		}

		size := int(sizeByte)
		if size < dtrpkt.HeaderSize || size > dtrpkt.HeaderSize+dtrpkt.MaxPayload {
			continue // resync by discarding this byte and trying again
		}

		rest := make([]byte, size-1)
		if _, err := io.ReadFull(s.r, rest); err != nil {
			return
		}

		frame := append([]byte{sizeByte}, rest...)

		select {
		case s.inbound <- frame:
		case <-s.done:
			return
		}
	}
}
