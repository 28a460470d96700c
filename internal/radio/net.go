// UDP-based radio transport for running a ring across real hosts on a LAN
// without dedicated radio hardware, bootstrapped by mDNS/DNS-SD peer
// discovery. The announce/respond pattern below is adapted directly from
// the teacher's own dns_sd.go (which announces a KISS-over-TCP service the
// same way); here it announces a UDP DTR endpoint instead of a TCP KISS
// port.
package radio

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/brutella/dnssd"
)

const dnssdServiceType = "_dtr-node._udp"

// Net is a Radio transported over UDP broadcast, one packet per frame
// (frames are already bounded well under the UDP datagram limit).
type Net struct {
	conn       *net.UDPConn
	broadcast  *net.UDPAddr
	inbound    chan []byte
	done       chan struct{}
	responder  dnssd.Responder
	cancelResp context.CancelFunc
}

// NewNet opens a UDP socket on port and announces it via DNS-SD under
// name (falling back to the host name if empty), so other nodes' Net
// instances can discover each other during the handshake phase described
// in spec.md §4.F without being told peer addresses in advance.
func NewNet(port int, broadcastAddr string, name string) (*Net, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("radio: listening on udp :%d: %w", port, err)
	}

	bcast, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", broadcastAddr, port))
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("radio: resolving broadcast address: %w", err)
	}

	n := &Net{
		conn:      conn,
		broadcast: bcast,
		inbound:   make(chan []byte, 32),
		done:      make(chan struct{}),
	}

	if err := n.announce(port, name); err != nil {
		// Discovery is a convenience, not a correctness requirement (the
		// ring still works with addresses configured by hand); the error
		// is discarded rather than failing the whole backend.
		_ = err
	}

	go n.readLoop()

	return n, nil
}

func (n *Net) announce(port int, name string) error {
	if name == "" {
		var err error
		name, err = os.Hostname()
		if err != nil || name == "" {
			name = "dtr-node"
		}
	}

	cfg := dnssd.Config{Name: name, Type: dnssdServiceType, Port: port}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("radio: dnssd: creating service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("radio: dnssd: creating responder: %w", err)
	}

	if _, err := responder.Add(svc); err != nil {
		return fmt.Errorf("radio: dnssd: adding service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.responder = responder
	n.cancelResp = cancel

	go func() { _ = responder.Respond(ctx) }()

	return nil
}

// DiscoverPeers browses for other _dtr-node._udp announcements until ctx is
// done, returning their UDP addresses. Nothing in this module calls it; the
// engine's handshake phase (spec.md §4.F) governs topology membership on
// its own.
func DiscoverPeers(ctx context.Context) ([]net.Addr, error) {
	var addrs []net.Addr

	add := func(e dnssd.BrowseEntry) {
		for _, ip := range e.IPs {
			addrs = append(addrs, &net.UDPAddr{IP: ip, Port: e.Port})
		}
	}

	err := dnssd.LookupType(ctx, dnssdServiceType, add, func(dnssd.BrowseEntry) {})
	if err != nil {
		return nil, fmt.Errorf("radio: dnssd: browsing for peers: %w", err)
	}

	return addrs, nil
}

func (n *Net) SendBroadcast(raw []byte) error {
	_, err := n.conn.WriteToUDP(raw, n.broadcast)

	return err
}

func (n *Net) Inbound() <-chan []byte { return n.inbound }

func (n *Net) Close() error {
	close(n.done)
	close(n.inbound)

	if n.cancelResp != nil {
		n.cancelResp()
	}

	return n.conn.Close()
}

func (n *Net) readLoop() {
	buf := make([]byte, 1500)

	for {
		size, _, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		frame := make([]byte, size)
		copy(frame, buf[:size])

		select {
		case n.inbound <- frame:
		case <-n.done:
			return
		}
	}
}
