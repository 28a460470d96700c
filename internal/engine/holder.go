package engine

import (
	"context"

	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
)

// peekTXData waits up to TXReceivedWaitTime for a head TX-DATA packet, per
// spec.md §5's "Application TX-DATA.peek/get(TX_RECEIVED_WAIT_TIME)"
// suspension point.
func (e *Engine) peekTXData() (dtrpkt.Packet, bool) {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.TXReceivedWaitTime)
	defer cancel()

	return e.txData.Peek(ctx)
}

// handleWaitCTS implements spec.md §4.F's RX_WAIT_CTS: on a matching CTS
// from the predecessor, this node has the token and decides what to do
// with it via holdToken.
func (e *Engine) handleWaitCTS(pkt dtrpkt.Packet) {
	if pkt.MessageType != dtrpkt.CTSFrame || pkt.SourceID != e.prevNodeID {
		return
	}
	e.sender.Stop()
	e.holdToken()
}

// holdToken implements the "this node now holds the token" decision shared
// by handleWaitCTS's CTS-granted path and Enable's initial-token-send
// startup case (spec.md §4.G): either forward the token on (queue empty,
// or the queued packet's target isn't in the ring) or start the first leg
// of a data transmission, rewriting a broadcast target to nextNodeID.
func (e *Engine) holdToken() {
	head, ok := e.peekTXData()
	if !ok {
		e.forwardToken()

		return
	}

	target := head.TargetID
	switch {
	case target == dtrpkt.BroadcastID:
		target = e.nextNodeID
	case !e.topo.Contains(target):
		e.txData.Release()
		e.forwardToken()

		return
	}

	e.nextSenderID = target
	e.haveNextSender = true

	out := dtrpkt.Packet{MessageType: dtrpkt.DataFrame, SourceID: e.self, TargetID: target, Data: head.Data}
	e.transmitSetup(out, TxDataFrame)
}

// handleWaitRTS implements spec.md §4.F's RX_WAIT_RTS: on a matching RTS
// from the successor, grant with CTS.
func (e *Engine) handleWaitRTS(pkt dtrpkt.Packet) {
	if pkt.MessageType != dtrpkt.RTSFrame || pkt.SourceID != e.nextNodeID {
		return
	}
	e.sender.Stop()

	cts := dtrpkt.Packet{MessageType: dtrpkt.CTSFrame, SourceID: e.self, TargetID: pkt.SourceID}
	e.transmitSetup(cts, TxCTS)
}

// handleWaitDataAck implements spec.md §4.F's RX_WAIT_DATA_ACK: on a
// matching ACK, decide whether the queued packet's delivery is complete
// (single target reached, broadcast fan-out wrapped to self, or the ring's
// next hop is self) or whether fan-out continues to the next peer.
func (e *Engine) handleWaitDataAck(pkt dtrpkt.Packet) {
	if pkt.MessageType != dtrpkt.DataAckFrame || pkt.TargetID != e.self {
		return
	}
	e.sender.Stop()

	head, ok := e.peekTXData()
	if !ok {
		// The packet this ACK answers is gone from TX-DATA (e.g. Disable
		// drained it concurrently); there's nothing left to continue, so
		// just hand the token onward.
		e.forwardToken()

		return
	}

	wasBroadcast := head.TargetID == dtrpkt.BroadcastID

	cursor := e.self
	if e.haveNextSender {
		cursor = e.nextSenderID
	}
	nextTarget := e.topo.Next(cursor)

	reachedSingleTarget := !wasBroadcast
	wrappedToSelf := wasBroadcast && nextTarget == e.self
	nextIsSelf := nextTarget == e.self

	if reachedSingleTarget || wrappedToSelf || nextIsSelf {
		e.txData.Release()
		e.nextSenderID = 0
		e.haveNextSender = false
		e.forwardToken()

		return
	}

	e.nextSenderID = nextTarget

	out := dtrpkt.Packet{MessageType: dtrpkt.DataFrame, SourceID: e.self, TargetID: nextTarget, Data: head.Data}
	e.transmitSetup(out, TxDataFrame)
}
