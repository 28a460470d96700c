package engine

import "github.com/kjell-dtr/dtr-go/internal/dtrpkt"

// handleProtocolTimeout implements spec.md §4.F's "Timeouts and lost-node
// handling" for the PROTOCOL_TIMEOUT_MS deadline (run already chose this
// branch over handleHandshakeSilence based on rxState).
func (e *Engine) handleProtocolTimeout() {
	e.counters.IncTimeout(timeoutStateName(e.rxState))

	if isHolderState(e.rxState) {
		e.handleHolderTimeout()

		return
	}

	e.handleIdleTimeout()
}

func timeoutStateName(rx RxState) string {
	switch rx {
	case RxWaitCTS:
		return "wait_cts"
	case RxWaitRTS:
		return "wait_rts"
	case RxWaitDataAck:
		return "wait_data_ack"
	default:
		return "idle"
	}
}

// handleHolderTimeout covers the "this node holds the token" branch: the
// unresponsive peer is the predecessor for WAIT_CTS, or the current fan-out
// target (falling back to nextNodeID) for WAIT_RTS/WAIT_DATA_ACK.
func (e *Engine) handleHolderTimeout() {
	e.sender.Stop()

	var lost byte
	switch e.rxState {
	case RxWaitCTS:
		lost = e.prevNodeID
	default: // RxWaitRTS, RxWaitDataAck
		lost = e.nextNodeID
		if e.haveNextSender {
			lost = e.nextSenderID
		}
	}

	if e.topo.Size() > 2 {
		e.runTopologyReconfigSequence(true, lost)

		return
	}

	e.resetToIdle()
}

// handleIdleTimeout covers the RX_IDLE, not-holding-the-token branch: the
// first silence resets the protocol; any later one (the flag is cleared only
// by an installed TOPOLOGY_RECONFIG or by Disable) either
// reclaims the token from a dead holder this node directly succeeds, or
// falls back to the lowest-surviving-ID aggressive claim.
func (e *Engine) handleIdleTimeout() {
	if !e.hasBeenTimedOut {
		e.hasBeenTimedOut = true
		e.resetToIdle()

		return
	}

	if e.haveNodeWithToken && e.prevNodeID == e.nodeWithToken {
		e.runTopologyReconfigSequence(true, e.nodeWithToken)

		return
	}

	if e.topo.Size() > 0 && e.self == e.topo.MinID() {
		e.runTopologyReconfigSequence(false, 0)
	}
}

func (e *Engine) resetToIdle() {
	e.sender.Stop()
	e.rxState = RxIdle
	e.txState = TxNone
	e.nextSenderID = 0
	e.haveNextSender = false
	e.counters.SetStates(uint8(e.rxState), uint8(e.txState))
}

// runTopologyReconfigSequence implements spec.md §4.F's "Topology-reconfig
// sequence": optionally remove the lost peer, broadcast the new topology as
// a TOPOLOGY_RECONFIG/TX_DATA_FRAME (so surviving peers ACK and install
// it), then drain the data queues and prime TX-DATA with a probe frame for
// the new ring.
func (e *Engine) runTopologyReconfigSequence(doRemove bool, lostID byte) {
	if doRemove {
		e.topo.Remove(lostID)
	}
	e.refreshNextPrev()
	e.counters.IncReconfigs()

	payload, err := dtrpkt.EncodeTopology(e.topo.IDs())
	if err != nil {
		e.logger.Trace("engine: encoding reconfig topology", "err", err)
		e.resetToIdle()

		return
	}

	e.txData.Drain()
	e.rxData.Drain()

	target := e.nextNodeID
	reconfig := dtrpkt.Packet{MessageType: dtrpkt.TopologyReconfig, SourceID: e.self, TargetID: target, Data: payload}
	e.transmitSetup(reconfig, TxDataFrame)

	probe := dtrpkt.Packet{MessageType: dtrpkt.DataFrame, SourceID: e.self, TargetID: target, Data: topologyProbeMarker}
	if err := e.txData.Put(probe); err != nil {
		e.counters.IncFailedTXQueueFull()
	}
}
