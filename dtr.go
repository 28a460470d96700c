// Package dtr is the public API of the Dynamic Token Ring protocol engine:
// a cooperative, best-effort token-passing discipline for peers sharing one
// broadcast channel (a packet radio, a UDP segment, a software modem — see
// package radio for the available backends). A Node owns one protocol
// engine bound to one radio.Radio; see internal/engine for the state
// machine itself.
package dtr

import (
	"context"
	"fmt"

	"github.com/kjell-dtr/dtr-go/internal/config"
	"github.com/kjell-dtr/dtr-go/internal/dtrlog"
	"github.com/kjell-dtr/dtr-go/internal/dtrpkt"
	"github.com/kjell-dtr/dtr-go/internal/engine"
	"github.com/kjell-dtr/dtr-go/internal/identity"
	"github.com/kjell-dtr/dtr-go/internal/platform"
	"github.com/kjell-dtr/dtr-go/internal/radio"
	"github.com/kjell-dtr/dtr-go/internal/telemetry"
)

// BroadcastID is the reserved target_id meaning "every peer in the ring",
// used as the TargetID argument to Send for fan-out traffic.
const BroadcastID = dtrpkt.BroadcastID

// Packet is a received application-layer frame, as delivered by Receive.
type Packet struct {
	SourceID byte
	Data     []byte
}

// Info is the read-only metadata snapshot returned by Node.Info: counts of
// sent/received/failed/timed-out frames plus the current rx_state/tx_state
// pair, matching spec.md §6's DTR_P2P telemetry group.
type Info = telemetry.RadioInfo

// Config is the compile-time configuration of spec.md §6.
type Config = config.Config

// DefaultConfig returns the spec's suggested minimums.
func DefaultConfig() Config { return config.Default() }

// LoadConfig overlays a YAML file on DefaultConfig.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Node is one DTR peer.
type Node struct {
	eng    *engine.Engine
	logger *dtrlog.Logger
}

// New constructs a Node bound to backend (any radio.Radio implementation:
// Loopback for tests/sims, Serial/Net for real transports, PTTGPIO/Hamlib/
// AFSK for keyed radio hardware) and idSource (get_self_id, spec.md §6).
// logger may be nil, in which case a default one is built from cfg.Debug.
func New(cfg Config, idSource identity.Source, backend radio.Radio, logger *dtrlog.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dtr: %w", err)
	}

	self, err := idSource.ReadSelfID()
	if err != nil {
		return nil, fmt.Errorf("dtr: reading self id: %w", err)
	}

	if logger == nil {
		logger = dtrlog.New(cfg.Debug, "")
	}

	counters := &telemetry.Counters{}
	rxSrv := engine.NewRXSrvQueue(cfg)
	dedup := radio.NewDedup(backend, func() bool { return rxSrv.Count() > 0 })

	eng := engine.New(cfg, self, dedup, rxSrv, platform.RealClock{}, logger, counters)

	return &Node{eng: eng, logger: logger}, nil
}

// Enable implements enable_protocol. A nil or empty topology starts dynamic
// handshake discovery (spec.md §4.F RX_HANDSHAKE); a non-empty one is the
// static predefined topology of spec.md §6, ordered so that topology[0] is
// the initial token holder.
func (n *Node) Enable(topology []byte) {
	n.eng.Enable(topology)
}

// Disable implements disable_protocol: stops the engine and timers, drains
// every queue.
func (n *Node) Disable() {
	n.eng.Disable()
}

// Send implements send_packet: enqueues data addressed to targetID (pass
// BroadcastID to fan out to every ring member). Returns false if TX-DATA is
// already full.
func (n *Node) Send(targetID byte, data []byte) bool {
	return n.eng.SendPacket(targetID, data)
}

// Receive implements get_packet: blocks on RX-DATA until a packet is
// available or ctx is done.
func (n *Node) Receive(ctx context.Context) (Packet, bool) {
	pkt, ok := n.eng.GetPacket(ctx)
	if !ok {
		return Packet{}, false
	}

	return Packet{SourceID: pkt.SourceID, Data: pkt.Data}, true
}

// Info implements get_radio_info.
func (n *Node) Info() Info { return n.eng.RadioInfo() }

// ResetInfo implements reset_radio_info.
func (n *Node) ResetInfo() { n.eng.ResetRadioInfo() }

// SelfID implements get_self_id.
func (n *Node) SelfID() byte { return n.eng.SelfID() }
