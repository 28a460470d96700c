package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjell-dtr/dtr-go/internal/config"
	"github.com/kjell-dtr/dtr-go/internal/dtrlog"
	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
	"github.com/kjell-dtr/dtr-go/internal/platform"
	"github.com/kjell-dtr/dtr-go/internal/queue"
	"github.com/kjell-dtr/dtr-go/internal/radio"
	"github.com/kjell-dtr/dtr-go/internal/telemetry"
	"github.com/kjell-dtr/dtr-go/internal/topology"
)

// topologyProbeMarker is the reserved one-byte DATA_FRAME payload a
// topology-reconfig sequence enqueues on TX-DATA once the new ring is
// installed, so the next token holder drives a frame around the fresh
// topology before real application traffic resumes. RX_IDLE's data handler
// recognizes and swallows it: it is spec.md §4.F's "synthetic start marker",
// an internal probe rather than application data.
var topologyProbeMarker = []byte{0}

func isStartMarker(data []byte) bool {
	return len(data) == 1 && data[0] == 0
}

// Engine is the single-owner DTR protocol state machine of spec.md §3/§4.F.
// All fields below "Enable" are touched only by the goroutine started in
// Enable, per spec.md §5's shared-state discipline; the one exception is
// counters, which is safe for concurrent access by design (it backs the
// sender timer's out-of-task callback).
type Engine struct {
	cfg      config.Config
	self     byte
	radio    radio.Radio
	clock    platform.Clock
	logger   *dtrlog.Logger
	counters *telemetry.Counters

	txData *queue.Queue[dtrpkt.Packet]
	rxSrv  *queue.Queue[dtrpkt.Packet]
	rxData *queue.Queue[dtrpkt.Packet]

	topo      *topology.Registry
	candidate *topology.Registry

	rxState RxState
	txState TxState

	nextNodeID, prevNodeID byte

	lastPacketSourceID   byte
	haveLastPacketSource bool

	nextSenderID   byte
	haveNextSender bool

	nodeWithToken     byte
	haveNodeWithToken bool

	hasBeenTimedOut bool
	initialToken    bool

	sender           *retransmitTimer
	handshake        *retransmitTimer
	candidatePayload atomic.Pointer[[]byte]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRXSrvQueue constructs the RX-SRV queue ahead of engine construction, so
// callers can wire radio.NewDedup's queuePending predicate against it before
// the Dedup-wrapped Radio is handed to New.
func NewRXSrvQueue(cfg config.Config) *queue.Queue[dtrpkt.Packet] {
	return queue.New[dtrpkt.Packet](cfg.RXSrvQueueCapacity)
}

// New constructs an Engine. r is expected to already be wrapped in
// radio.NewDedup (or equivalent) if the backend needs spec.md §4.H's
// duplicate filter; rxSrv must be the same queue that filter's
// queuePending predicate observes.
func New(cfg config.Config, self byte, r radio.Radio, rxSrv *queue.Queue[dtrpkt.Packet], clock platform.Clock, logger *dtrlog.Logger, counters *telemetry.Counters) *Engine {
	return &Engine{
		cfg:      cfg,
		self:     self,
		radio:    r,
		clock:    clock,
		logger:   logger,
		counters: counters,

		txData: queue.New[dtrpkt.Packet](cfg.TXDataQueueCapacity),
		rxSrv:  rxSrv,
		rxData: queue.New[dtrpkt.Packet](cfg.RXDataQueueCapacity),

		sender:    &retransmitTimer{clock: clock},
		handshake: &retransmitTimer{clock: clock},
	}
}

// SelfID returns this node's persisted identity.
func (e *Engine) SelfID() byte { return e.self }

// RxState and TxState expose the current machine state directly; cmd/dtrmon's
// dashboard and other callers read the published pair through RadioInfo
// instead of reaching into the engine.
func (e *Engine) RxState() RxState { return e.rxState }
func (e *Engine) TxState() TxState { return e.txState }

// RadioInfo returns a snapshot of the metadata counters of spec.md §4.G.
func (e *Engine) RadioInfo() telemetry.RadioInfo { return e.counters.Snapshot() }

// ResetRadioInfo zeroes the metadata counters.
func (e *Engine) ResetRadioInfo() { e.counters.Reset() }

// SendPacket implements send_packet: enqueue to TX-DATA, non-blocking.
func (e *Engine) SendPacket(targetID byte, data []byte) bool {
	pkt := dtrpkt.Packet{MessageType: dtrpkt.DataFrame, SourceID: e.self, TargetID: targetID, Data: data}

	if err := e.txData.Put(pkt); err != nil {
		e.counters.IncFailedTXQueueFull()

		return false
	}

	return true
}

// GetPacket implements get_packet: blocks on RX-DATA until ctx is done.
func (e *Engine) GetPacket(ctx context.Context) (dtrpkt.Packet, bool) {
	return e.rxData.Get(ctx)
}

// Enable implements enable_protocol: initializes state and starts the
// engine task. A non-empty staticTopology selects the static-predefined
// path of spec.md §4.F/§6; an empty one starts dynamic handshake discovery.
func (e *Engine) Enable(staticTopology []byte) {
	ctx, cancel := context.WithCancel(context.Background())
	e.ctx = ctx
	e.cancel = cancel

	if len(staticTopology) > 0 {
		e.topo = topology.New(staticTopology)
		e.rxState = RxIdle
		e.refreshNextPrev()
		e.initialToken = staticTopology[0] == e.self
	} else {
		e.topo = topology.New(nil)
		e.rxState = RxHandshake
	}
	e.txState = TxNone
	e.counters.SetStates(uint8(e.rxState), uint8(e.txState))

	e.wg.Add(2)
	go e.feed(ctx)
	go e.run(ctx)
}

// Disable implements disable_protocol: stops the engine task and timers,
// drains every queue, and clears the timed-out, last-source, fan-out and
// observed-token flags. Enable sets the topology and rx/tx state afresh.
func (e *Engine) Disable() {
	if e.cancel != nil {
		e.cancel()
	}
	e.sender.Stop()
	e.handshake.Stop()
	e.wg.Wait()

	e.txData.Drain()
	e.rxData.Drain()
	e.rxSrv.Drain()

	e.hasBeenTimedOut = false
	e.haveLastPacketSource = false
	e.haveNextSender = false
	e.haveNodeWithToken = false
}

// feed is the radio-adapter collaborator of spec.md §4.H: it decodes every
// inbound frame and enqueues it to RX-SRV. Malformed frames are dropped with
// a trace line; RX-SRV overflow is counted as a failed RX-queue-full.
func (e *Engine) feed(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case raw, ok := <-e.radio.Inbound():
			if !ok {
				return
			}

			pkt, err := dtrpkt.Decode(raw)
			if err != nil {
				e.logger.Trace("engine: dropping malformed frame", "err", err)

				continue
			}

			e.counters.IncReceived()

			if err := e.rxSrv.Put(pkt); err != nil {
				e.counters.IncFailedRXQueueFull()
			}
		case <-ctx.Done():
			return
		}
	}
}

// run is the engine task of spec.md §5: it blocks solely on
// RX-SRV.get(timeout), where timeout is the handshake silence deadline
// during discovery and the overall protocol deadline otherwise.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	if e.rxState == RxHandshake {
		e.startHandshake()
	} else if e.initialToken {
		// Acting as the pre-agreed initial token holder (spec.md §4.G): go
		// straight to the "have the token" decision rather than broadcasting
		// a TOKEN_FRAME and waiting for an RTS from ourselves.
		e.holdToken()
	}

	handshakeDeadline := time.Now().Add(e.cfg.HandshakeTimeout)

	for {
		timeout := e.cfg.ProtocolTimeout
		if e.rxState == RxHandshake {
			timeout = time.Until(handshakeDeadline)
			if timeout <= 0 {
				e.handleHandshakeSilence()

				continue
			}
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		pkt, ok := e.rxSrv.Get(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}

		if !ok {
			if e.rxState == RxHandshake {
				e.handleHandshakeSilence()
			} else {
				e.handleProtocolTimeout()
			}

			continue
		}

		e.updateNodeWithToken(pkt)

		known := 0
		if e.rxState == RxHandshake {
			known = e.candidate.Size()
		}
		e.dispatch(pkt)
		if e.rxState == RxHandshake && e.candidate.Size() > known {
			handshakeDeadline = time.Now().Add(e.cfg.HandshakeTimeout)
		}
	}
}

func (e *Engine) dispatch(pkt dtrpkt.Packet) {
	switch {
	case e.rxState == RxHandshake:
		if pkt.MessageType == dtrpkt.HandshakeFrame {
			e.handleHandshakeFrame(pkt)
		}
	case e.rxState == RxWaitCTS:
		e.handleWaitCTS(pkt)
	case e.rxState == RxWaitRTS:
		e.handleWaitRTS(pkt)
	case e.rxState == RxWaitDataAck:
		e.handleWaitDataAck(pkt)
	default:
		e.handleIdleFrame(pkt)
	}
}

// updateNodeWithToken implements spec.md §4.F's "observed-token tracking":
// every inbound frame updates the engine's belief about who holds the
// token, independent of whether this node acts on the frame.
func (e *Engine) updateNodeWithToken(pkt dtrpkt.Packet) {
	switch pkt.MessageType {
	case dtrpkt.TokenFrame:
		if e.topo != nil {
			e.nodeWithToken = e.topo.Next(pkt.SourceID)
			e.haveNodeWithToken = true
		}
	case dtrpkt.RTSFrame:
		e.nodeWithToken = pkt.SourceID
		e.haveNodeWithToken = true
	}
}

// refreshNextPrev recomputes nextNodeID/prevNodeID from the live topology.
func (e *Engine) refreshNextPrev() {
	e.nextNodeID = e.topo.Next(e.self)
	e.prevNodeID = e.topo.Prev(e.self)
}

// transmitSetup is the common outbound path of spec.md §4.F's "Transmit
// setup": set tx_state, derive the post-transmit rx_state (arming the
// sender timer for the three token-holder states), then broadcast once
// immediately.
func (e *Engine) transmitSetup(pkt dtrpkt.Packet, tx TxState) {
	e.txState = tx

	raw, err := dtrpkt.Encode(pkt)
	if err != nil {
		e.logger.Trace("engine: encode failed", "type", pkt.MessageType, "err", err)

		return
	}

	switch tx {
	case TxDataAck:
		e.rxState = RxIdle
	case TxCTS:
		e.rxState = RxIdle
	case TxRTS:
		e.rxState = RxWaitCTS
		e.armSender(raw, e.cfg.SpamPeriodCTS, "wait_cts")
	case TxToken:
		e.rxState = RxWaitRTS
		e.armSender(raw, e.cfg.SpamPeriodRTS, "wait_rts")
	case TxDataFrame:
		e.rxState = RxWaitDataAck
		e.armSender(raw, e.cfg.SpamPeriodDataAck, "wait_data_ack")
	}

	e.counters.SetStates(uint8(e.rxState), uint8(e.txState))

	if err := e.radio.SendBroadcast(raw); err != nil {
		e.logger.Trace("engine: send failed", "type", pkt.MessageType, "err", err)

		return
	}
	e.counters.IncSent()
}

func (e *Engine) armSender(raw []byte, period time.Duration, stateName string) {
	e.sender.Stop()

	payload := func() []byte { return raw }
	send := e.radio.SendBroadcast
	onFire := func() {
		e.counters.IncSent()
		e.counters.IncTimeout(stateName)
	}

	if !e.sender.Start(period, payload, send, onFire) {
		e.logger.Trace("engine: sender timer already running, start ignored", "state", stateName)
	}
}

// forwardToken implements the TOKEN_FRAME handoff used at the end of both
// holder states and at election/startup: point-to-point addressed to
// nextNodeID, per spec.md §8's scenario S1 wire trace ("A->B TOKEN"), never
// broadcast-addressed.
func (e *Engine) forwardToken() {
	e.nextSenderID = 0
	e.haveNextSender = false

	tok := dtrpkt.Packet{MessageType: dtrpkt.TokenFrame, SourceID: e.self, TargetID: e.nextNodeID}
	e.transmitSetup(tok, TxToken)
}
