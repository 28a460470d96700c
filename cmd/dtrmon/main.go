// Command dtrmon is a live terminal dashboard for a DTR peer: it joins a
// ring the same way dtrnode does, but instead of relaying application
// traffic it repaints rx_state/tx_state and the radio_info counters of
// spec.md §6 to the terminal, refreshing on a fixed tick, and watches the
// controlling terminal (/dev/tty) in raw mode (via github.com/pkg/term) so
// 'q' exits cleanly without
// waiting for a newline.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/kjell-dtr/dtr-go/internal/dtrlog"
	"github.com/kjell-dtr/dtr-go/internal/identity"
	"github.com/kjell-dtr/dtr-go/internal/radio"

	dtr "github.com/kjell-dtr/dtr-go"
)

func main() {
	var (
		configPath   = pflag.StringP("config", "c", "", "YAML config file overlaying the built-in defaults")
		selfID       = pflag.IntP("self-id", "i", -1, "This node's ring ID (0-254); defaults to the identity file")
		identityPath = pflag.StringP("identity-file", "I", "/var/lib/dtr/self-id", "Fallback persisted-identity file")
		udpPort      = pflag.IntP("udp-port", "p", 7373, "UDP port for the net radio backend")
		udpBroadcast = pflag.StringP("udp-broadcast", "b", "255.255.255.255", "UDP broadcast address")
		refresh      = pflag.DurationP("refresh", "r", 500*time.Millisecond, "Dashboard refresh interval")
		help         = pflag.Bool("help", false, "Display help text")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - live rx_state/tx_state/radio_info dashboard for a DTR peer.\n\n", os.Args[0])
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
			fmt.Fprintln(os.Stderr, "dtrmon:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var idSource identity.Source
	if *selfID >= 0 {
		idSource = identity.Static(byte(*selfID))
	} else {
		idSource = identity.FromFile{Path: *identityPath, DefaultID: 1}
	}

	backend, err := radio.NewNet(*udpPort, *udpBroadcast, "dtrmon")
	if err != nil {
		fmt.Fprintln(os.Stderr, "dtrmon: opening net radio:", err)
		os.Exit(1)
	}
	defer backend.Close()

	node, err := dtr.New(cfg, idSource, backend, dtrlog.New(false, ""))
	if err != nil {
		fmt.Fprintln(os.Stderr, "dtrmon:", err)
		os.Exit(1)
	}

	node.Enable(nil)
	defer node.Disable()

	quit := make(chan struct{})
	go watchForQuit(quit)

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			render(node)
		case <-quit:
			return
		}
	}
}

// watchForQuit puts the controlling terminal into raw mode so a single 'q'
// keypress exits the dashboard without requiring Enter.
func watchForQuit(quit chan<- struct{}) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return // no controlling terminal (e.g. running under a supervisor); dashboard still refreshes on its ticker
	}
	defer tty.Close()

	buf := make([]byte, 1)
	for {
		if _, err := tty.Read(buf); err != nil {
			return
		}
		if buf[0] == 'q' || buf[0] == 'Q' {
			close(quit)

			return
		}
	}
}

func render(node *dtr.Node) {
	info := node.Info()

	fmt.Print("\033[H\033[2J")
	fmt.Printf("dtr node %d\r\n", node.SelfID())
	fmt.Printf("rx_state=%d tx_state=%d\r\n", info.RxState, info.TxState)
	fmt.Printf("sent=%d received=%d\r\n", info.Sent, info.Received)
	fmt.Printf("failed_tx_full=%d failed_rx_full=%d\r\n", info.FailedTXQueueFull, info.FailedRXQueueFull)
	fmt.Printf("timeouts: handshake=%d wait_cts=%d wait_rts=%d wait_data_ack=%d idle=%d\r\n",
		info.TimeoutsHandshake, info.TimeoutsWaitCTS, info.TimeoutsWaitRTS, info.TimeoutsWaitDataAck, info.TimeoutsIdle)
	fmt.Printf("reconfigs=%d\r\n", info.Reconfigs)
	fmt.Print("\r\n(q to quit)\r\n")
}
