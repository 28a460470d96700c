// Package telemetry implements the metadata counters and the two
// observability variables of spec.md §3/§6: monotonic counts of
// sent/received/failed packets and per-state timeouts, plus the
// rx_state/tx_state pair exported to the host's DTR_P2P telemetry group.
// All fields are accessed with atomics so the sender-timer callback (which
// increments counters from outside the engine goroutine) never needs a
// lock, per spec.md §5's "single-word writes" requirement.
package telemetry

import "sync/atomic"

// RadioInfo is the read-only snapshot returned by get_radio_info().
type RadioInfo struct {
	Sent                uint64
	Received            uint64
	FailedTXQueueFull   uint64
	FailedRXQueueFull   uint64
	TimeoutsHandshake   uint64
	TimeoutsWaitCTS     uint64
	TimeoutsWaitRTS     uint64
	TimeoutsWaitDataAck uint64
	TimeoutsIdle        uint64
	Reconfigs           uint64
	RxState             uint8
	TxState             uint8
}

// Counters is the live, mutable counterpart engines write through.
type Counters struct {
	sent                uint64
	received            uint64
	failedTXQueueFull   uint64
	failedRXQueueFull   uint64
	timeoutsHandshake   uint64
	timeoutsWaitCTS     uint64
	timeoutsWaitRTS     uint64
	timeoutsWaitDataAck uint64
	timeoutsIdle        uint64
	reconfigs           uint64
	rxState             atomic.Uint32
	txState             atomic.Uint32
}

func (c *Counters) IncSent()              { atomic.AddUint64(&c.sent, 1) }
func (c *Counters) IncReceived()          { atomic.AddUint64(&c.received, 1) }
func (c *Counters) IncFailedTXQueueFull() { atomic.AddUint64(&c.failedTXQueueFull, 1) }
func (c *Counters) IncFailedRXQueueFull() { atomic.AddUint64(&c.failedRXQueueFull, 1) }
func (c *Counters) IncReconfigs()         { atomic.AddUint64(&c.reconfigs, 1) }

// IncTimeout bumps the per-state timeout counter named by state.
func (c *Counters) IncTimeout(state string) {
	switch state {
	case "handshake":
		atomic.AddUint64(&c.timeoutsHandshake, 1)
	case "wait_cts":
		atomic.AddUint64(&c.timeoutsWaitCTS, 1)
	case "wait_rts":
		atomic.AddUint64(&c.timeoutsWaitRTS, 1)
	case "wait_data_ack":
		atomic.AddUint64(&c.timeoutsWaitDataAck, 1)
	case "idle":
		atomic.AddUint64(&c.timeoutsIdle, 1)
	}
}

// SetStates publishes the current rx_state/tx_state pair, as exported to
// DTR_P2P in spec.md §6.
func (c *Counters) SetStates(rx, tx uint8) {
	c.rxState.Store(uint32(rx))
	c.txState.Store(uint32(tx))
}

// Snapshot returns a point-in-time copy of all counters.
func (c *Counters) Snapshot() RadioInfo {
	return RadioInfo{
		Sent:                atomic.LoadUint64(&c.sent),
		Received:            atomic.LoadUint64(&c.received),
		FailedTXQueueFull:   atomic.LoadUint64(&c.failedTXQueueFull),
		FailedRXQueueFull:   atomic.LoadUint64(&c.failedRXQueueFull),
		TimeoutsHandshake:   atomic.LoadUint64(&c.timeoutsHandshake),
		TimeoutsWaitCTS:     atomic.LoadUint64(&c.timeoutsWaitCTS),
		TimeoutsWaitRTS:     atomic.LoadUint64(&c.timeoutsWaitRTS),
		TimeoutsWaitDataAck: atomic.LoadUint64(&c.timeoutsWaitDataAck),
		TimeoutsIdle:        atomic.LoadUint64(&c.timeoutsIdle),
		Reconfigs:           atomic.LoadUint64(&c.reconfigs),
		RxState:             uint8(c.rxState.Load()),
		TxState:             uint8(c.txState.Load()),
	}
}

// Reset zeroes every counter, implementing reset_radio_info(). rx_state and
// tx_state are left untouched: they reflect current machine state, not
// accumulated history.
func (c *Counters) Reset() {
	atomic.StoreUint64(&c.sent, 0)
	atomic.StoreUint64(&c.received, 0)
	atomic.StoreUint64(&c.failedTXQueueFull, 0)
	atomic.StoreUint64(&c.failedRXQueueFull, 0)
	atomic.StoreUint64(&c.timeoutsHandshake, 0)
	atomic.StoreUint64(&c.timeoutsWaitCTS, 0)
	atomic.StoreUint64(&c.timeoutsWaitRTS, 0)
	atomic.StoreUint64(&c.timeoutsWaitDataAck, 0)
	atomic.StoreUint64(&c.timeoutsIdle, 0)
	atomic.StoreUint64(&c.reconfigs, 0)
}
