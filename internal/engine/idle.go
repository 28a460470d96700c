package engine

import "github.com/kjell-dtr/dtr-go/internal/dtrpkt"

// handleIdleFrame implements spec.md §4.F's "Steady state (RX_IDLE)":
// dispatch on message type, dropping anything the ring doesn't expect a
// bystander to see silently.
func (e *Engine) handleIdleFrame(pkt dtrpkt.Packet) {
	switch pkt.MessageType {
	case dtrpkt.DataFrame:
		e.handleDataFrameIdle(pkt)
	case dtrpkt.TokenFrame:
		if pkt.SourceID == e.prevNodeID {
			rts := dtrpkt.Packet{MessageType: dtrpkt.RTSFrame, SourceID: e.self, TargetID: pkt.SourceID}
			e.transmitSetup(rts, TxRTS)
		}
	case dtrpkt.RTSFrame:
		if pkt.SourceID == e.nextNodeID {
			cts := dtrpkt.Packet{MessageType: dtrpkt.CTSFrame, SourceID: e.self, TargetID: pkt.SourceID}
			e.transmitSetup(cts, TxCTS)
		}
	case dtrpkt.TopologyReconfig:
		e.handleTopologyReconfig(pkt)
	}
}

// handleDataFrameIdle implements the DATA_FRAME row of spec.md §4.F's
// RX_IDLE table: at-most-once delivery to the application, keyed on
// last_packet_source_id, followed unconditionally by a DATA_ACK_FRAME so
// the sender's spammer stops even when this is a re-delivery.
func (e *Engine) handleDataFrameIdle(pkt dtrpkt.Packet) {
	if pkt.TargetID != e.self {
		return
	}

	isNewSource := !e.haveLastPacketSource || pkt.SourceID != e.lastPacketSourceID
	if isNewSource && !isStartMarker(pkt.Data) {
		if err := e.rxData.Put(pkt); err != nil {
			e.counters.IncFailedRXQueueFull()
		}
		e.lastPacketSourceID = pkt.SourceID
		e.haveLastPacketSource = true
	}

	ack := dtrpkt.Packet{MessageType: dtrpkt.DataAckFrame, SourceID: e.self, TargetID: pkt.SourceID}
	e.transmitSetup(ack, TxDataAck)
}

// handleTopologyReconfig implements the TOPOLOGY_RECONFIG row: install the
// new ring, surface a small notice to the local application, and ACK.
func (e *Engine) handleTopologyReconfig(pkt dtrpkt.Packet) {
	ids, err := dtrpkt.DecodeTopology(pkt.Data)
	if err != nil {
		e.logger.Trace("engine: malformed topology_reconfig payload", "err", err)

		return
	}

	e.topo.Install(ids)
	e.hasBeenTimedOut = false
	e.refreshNextPrev()

	notice, err := dtrpkt.EncodeTopology(ids)
	if err == nil {
		reply := dtrpkt.Packet{MessageType: dtrpkt.DataFrame, SourceID: pkt.SourceID, TargetID: e.self, Data: notice}
		if err := e.rxData.Put(reply); err != nil {
			e.counters.IncFailedRXQueueFull()
		}
	}

	ack := dtrpkt.Packet{MessageType: dtrpkt.DataAckFrame, SourceID: e.self, TargetID: pkt.SourceID}
	e.transmitSetup(ack, TxDataAck)
}
