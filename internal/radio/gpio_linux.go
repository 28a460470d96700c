//go:build linux

package radio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// PTTGPIO wraps another Radio, keying a GPIO line high for the duration of
// every SendBroadcast and low otherwise — the push-to-talk keying a real
// half-duplex radio transceiver needs around each transmission, which the
// teacher's own audio/PTT path (ptt.go) implements in C via direct register
// access. go-gpiocdev is the modern Linux gpiochar-device equivalent.
type PTTGPIO struct {
	Radio

	line    *gpiocdev.Line
	settle  time.Duration // time to let the PTT relay/amp settle before transmitting
}

// NewPTTGPIO opens chip/offset as an output line, defaulting low (receive),
// and wraps inner so every SendBroadcast brackets itself with PTT on/off.
func NewPTTGPIO(inner Radio, chip string, offset int, settle time.Duration) (*PTTGPIO, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("radio: requesting PTT line %s:%d: %w", chip, offset, err)
	}

	return &PTTGPIO{Radio: inner, line: line, settle: settle}, nil
}

func (p *PTTGPIO) SendBroadcast(raw []byte) error {
	if err := p.line.SetValue(1); err != nil {
		return fmt.Errorf("radio: keying PTT: %w", err)
	}
	defer p.line.SetValue(0)

	if p.settle > 0 {
		time.Sleep(p.settle)
	}

	return p.Radio.SendBroadcast(raw)
}

func (p *PTTGPIO) Close() error {
	_ = p.line.SetValue(0)
	_ = p.line.Close()

	return p.Radio.Close()
}
