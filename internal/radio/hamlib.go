package radio

import (
	"fmt"

	hamlib "github.com/xylo04/goHamlib"
)

// Hamlib wraps another byte-stream Radio (typically Serial over an
// audio-modem-attached interface) and drives a real transceiver's PTT
// through Hamlib's rig-control API, rather than a bare GPIO line —
// the choice a station with a CAT-controlled radio (as opposed to a bare
// relay-switched PTT) makes instead of PTTGPIO.
type Hamlib struct {
	Radio

	rig *hamlib.Rig
}

// NewHamlib opens the rig identified by model/port (e.g. a rigctld
// "localhost:4532" network rig, or a local serial CAT port) and wraps
// inner so every SendBroadcast keys PTT through Hamlib first.
func NewHamlib(inner Radio, model int, port string) (*Hamlib, error) {
	rig := hamlib.NewRig(model)
	if err := rig.Open(port); err != nil {
		return nil, fmt.Errorf("radio: opening hamlib rig model %d on %s: %w", model, port, err)
	}

	return &Hamlib{Radio: inner, rig: rig}, nil
}

func (h *Hamlib) SendBroadcast(raw []byte) error {
	if err := h.rig.SetPTT(hamlib.PTTOn); err != nil {
		return fmt.Errorf("radio: hamlib PTT on: %w", err)
	}
	defer h.rig.SetPTT(hamlib.PTTOff)

	return h.Radio.SendBroadcast(raw)
}

func (h *Hamlib) Close() error {
	_ = h.rig.SetPTT(hamlib.PTTOff)
	_ = h.rig.Close()

	return h.Radio.Close()
}
