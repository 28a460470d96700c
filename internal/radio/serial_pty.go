package radio

import (
	"fmt"

	"github.com/creack/pty"
	"github.com/pkg/term"
)

// NewPTYPair opens a pty and returns two Serials, one on each end of the
// master/slave pair: a convenient loopback channel for integration tests
// that want to exercise the real Serial framing code without an attached
// radio modem. Closing either Serial closes only its own end.
func NewPTYPair() (master, slave *Serial, err error) {
	m, s, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("radio: opening pty pair: %w", err)
	}

	return NewSerial(m), NewSerial(s), nil
}

// OpenTTY opens a real serial device in raw mode for use with NewSerial.
// github.com/pkg/term is used here rather than creack/pty because it is
// the pack's dedicated "put a real TTY into raw/cbreak mode" library,
// whereas creack/pty only allocates pseudo-terminal pairs.
func OpenTTY(path string, baud int) (*Serial, error) {
	t, err := term.Open(path, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("radio: opening %s: %w", path, err)
	}

	return NewSerial(t), nil
}
