package engine

import (
	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
	"github.com/kjell-dtr/dtr-go/internal/topology"
)

// startHandshake is entered once, from run, when discovery begins (spec.md
// §4.F "On start"): self joins its own candidate topology and the
// handshake timer starts rebroadcasting it.
func (e *Engine) startHandshake() {
	e.candidate = topology.New([]byte{e.self})
	e.publishCandidate()

	if !e.handshake.Start(e.cfg.HandshakeBroadcastPeriod, e.candidatePayloadFunc, e.radio.SendBroadcast, func() {
		e.counters.IncSent()
	}) {
		e.logger.Trace("engine: handshake timer already running, start ignored")
	}
}

// candidatePayloadFunc is read by the handshake retransmitTimer's own
// goroutine, so it goes through the atomic snapshot publishCandidate keeps
// current rather than touching e.candidate directly.
func (e *Engine) candidatePayloadFunc() []byte {
	p := e.candidatePayload.Load()
	if p == nil {
		return nil
	}

	return *p
}

// publishCandidate re-encodes the current candidate topology as a
// HANDSHAKE_FRAME and stores it for the handshake timer to rebroadcast.
func (e *Engine) publishCandidate() {
	payload, err := dtrpkt.EncodeTopology(e.candidate.IDs())
	if err != nil {
		e.logger.Trace("engine: encoding candidate topology", "err", err)

		return
	}

	raw, err := dtrpkt.Encode(dtrpkt.Packet{
		MessageType: dtrpkt.HandshakeFrame,
		SourceID:    e.self,
		TargetID:    dtrpkt.BroadcastID,
		Data:        payload,
	})
	if err != nil {
		e.logger.Trace("engine: encoding handshake frame", "err", err)

		return
	}

	e.candidatePayload.Store(&raw)
}

// handleHandshakeFrame implements spec.md §4.F's "On inbound
// HANDSHAKE_FRAME": learn any new peers. run restarts the HandshakeTimeout
// silence deadline only when this grows the candidate topology; repeated
// announcements of already-known peers do not extend it.
func (e *Engine) handleHandshakeFrame(pkt dtrpkt.Packet) {
	ids, err := dtrpkt.DecodeTopology(pkt.Data)
	if err != nil {
		e.logger.Trace("engine: malformed handshake payload", "err", err)

		return
	}

	grew := false
	for _, id := range ids {
		if e.candidate.Add(id) {
			grew = true
		}
	}

	if grew {
		e.publishCandidate()
	}
}

// handleHandshakeSilence implements spec.md §4.F's "On silence deadline
// elapsed": the lowest-ID candidate elects itself the initial token
// holder and runs a no-removal topology-reconfig sequence; everyone else
// simply drops to RX_IDLE with the agreed topology installed.
func (e *Engine) handleHandshakeSilence() {
	e.handshake.Stop()

	e.topo = topology.New(e.candidate.IDs())
	elected := e.self == e.candidate.MinID()
	e.candidate = nil

	e.refreshNextPrev()

	if elected {
		e.runTopologyReconfigSequence(false, 0)

		return
	}

	e.rxState = RxIdle
	e.counters.SetStates(uint8(e.rxState), uint8(e.txState))
}
