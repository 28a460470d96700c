// Command dtrnode runs a single DTR peer over the UDP/mDNS radio backend,
// for a LAN-wide ring. It exercises package dtr the way a
// real deployment would: load config, resolve identity, enable the
// protocol, and shuttle packets between stdin/stdout and the ring.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kjell-dtr/dtr-go/internal/dtrlog"
	"github.com/kjell-dtr/dtr-go/internal/identity"
	"github.com/kjell-dtr/dtr-go/internal/radio"

	dtr "github.com/kjell-dtr/dtr-go"
)

func main() {
	var (
		configPath    = pflag.StringP("config", "c", "", "YAML config file overlaying the built-in defaults")
		selfID        = pflag.IntP("self-id", "i", -1, "This node's ring ID (0-254); defaults to the identity file")
		identityPath  = pflag.StringP("identity-file", "I", "/var/lib/dtr/self-id", "Fallback persisted-identity file")
		udpPort       = pflag.IntP("udp-port", "p", 7373, "UDP port for the net radio backend")
		udpBroadcast  = pflag.StringP("udp-broadcast", "b", "255.255.255.255", "UDP broadcast address")
		mdnsName      = pflag.StringP("mdns-name", "n", "", "DNS-SD service name to announce (defaults to host name)")
		topologyFlag  = pflag.StringP("topology", "t", "", "Comma-separated static topology, e.g. 0,1,2 (empty = dynamic handshake)")
		debug         = pflag.BoolP("debug", "d", false, "Enable DEBUG_DTR_PROTOCOL trace logging")
		help          = pflag.Bool("help", false, "Display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - run a single Dynamic Token Ring peer over UDP.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg := dtr.DefaultConfig()
	if *configPath != "" {
		loaded, err := dtr.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "dtrnode:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Debug = cfg.Debug || *debug

	logger := dtrlog.New(cfg.Debug, "dtrnode-trace-%Y-%m-%d.log")

	var idSource identity.Source
	if *selfID >= 0 {
		idSource = identity.Static(byte(*selfID))
	} else {
		idSource = identity.FromFile{Path: *identityPath, DefaultID: 1}
	}

	backend, err := radio.NewNet(*udpPort, *udpBroadcast, *mdnsName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dtrnode: opening net radio:", err)
		os.Exit(1)
	}
	defer backend.Close()

	node, err := dtr.New(cfg, idSource, backend, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dtrnode:", err)
		os.Exit(1)
	}

	var topo []byte
	if *topologyFlag != "" {
		topo = parseTopology(*topologyFlag)
	}
	node.Enable(topo)
	defer node.Disable()

	logger.Info("dtrnode: enabled", "self_id", node.SelfID(), "static", len(topo) > 0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go receiveLoop(ctx, node, logger)
	sendLoop(ctx, node, logger)
}

func parseTopology(s string) []byte {
	parts := strings.Split(s, ",")
	ids := make([]byte, 0, len(parts))
	for _, p := range parts {
		var id int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &id); err == nil {
			ids = append(ids, byte(id))
		}
	}

	return ids
}

// receiveLoop prints every application packet delivered off the ring to
// stdout, tagged with its originating node.
func receiveLoop(ctx context.Context, node *dtr.Node, logger *dtrlog.Logger) {
	for {
		pkt, ok := node.Receive(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		fmt.Printf("[%d] %s\n", pkt.SourceID, pkt.Data)
	}
}

// sendLoop reads newline-delimited "target:text" lines from stdin and
// relays them onto TX-DATA until ctx is done.
func sendLoop(ctx context.Context, node *dtr.Node, logger *dtrlog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		target, text, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		var id int
		if _, err := fmt.Sscanf(strings.TrimSpace(target), "%d", &id); err != nil {
			logger.Warn("dtrnode: bad target", "input", target)

			continue
		}

		if !node.Send(byte(id), []byte(text)) {
			logger.Warn("dtrnode: TX-DATA full, dropped", "target", id)
		}
	}
}
