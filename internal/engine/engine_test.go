package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kjell-dtr/dtr-go/internal/config"
	"github.com/kjell-dtr/dtr-go/internal/dtrlog"
	"github.com/kjell-dtr/dtr-go/internal/engine"
	"github.com/kjell-dtr/dtr-go/internal/platform"
	"github.com/kjell-dtr/dtr-go/internal/radio"
	"github.com/kjell-dtr/dtr-go/internal/radiotest"
	"github.com/kjell-dtr/dtr-go/internal/telemetry"
)

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.SpamPeriodCTS = 20 * time.Millisecond
	cfg.SpamPeriodRTS = 20 * time.Millisecond
	cfg.SpamPeriodDataAck = 20 * time.Millisecond
	cfg.ProtocolTimeout = 100 * time.Millisecond
	cfg.HandshakeTimeout = 100 * time.Millisecond
	cfg.HandshakeBroadcastPeriod = 15 * time.Millisecond
	cfg.TXReceivedWaitTime = 5 * time.Millisecond

	return cfg
}

func newEngine(t *testing.T, backend radio.Radio, self byte, cfg config.Config) *engine.Engine {
	t.Helper()

	rxSrv := engine.NewRXSrvQueue(cfg)
	dedup := radio.NewDedup(backend, func() bool { return rxSrv.Count() > 0 })
	logger := dtrlog.New(false, "")
	counters := &telemetry.Counters{}

	e := engine.New(cfg, self, dedup, rxSrv, platform.RealClock{}, logger, counters)
	t.Cleanup(e.Disable)

	return e
}

func TestEngineStaticTwoNodeUnicastDelivered(t *testing.T) {
	medium := radiotest.NewMedium()
	cfg := fastConfig()

	a := newEngine(t, medium.NewNode(), 0, cfg)
	b := newEngine(t, medium.NewNode(), 1, cfg)

	b.Enable([]byte{0, 1})
	a.Enable([]byte{0, 1})

	require.True(t, a.SendPacket(1, []byte{42}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pkt, ok := b.GetPacket(ctx)
	require.True(t, ok)
	require.Equal(t, []byte{42}, pkt.Data)
	require.Equal(t, byte(0), pkt.SourceID)

	require.Eventually(t, func() bool {
		return a.RadioInfo().Sent > 0
	}, time.Second, 10*time.Millisecond)
}

func TestEngineSendPacketRejectsWhenTXDataFull(t *testing.T) {
	cfg := fastConfig()
	cfg.TXDataQueueCapacity = 1

	backend := radio.NewLoopback(func([]byte) error { return nil })
	e := newEngine(t, backend, 7, cfg)

	// Static single-node topology: no peer ever responds, so nothing
	// releases the queued packet before the second SendPacket below (the
	// engine only drains TX-DATA after several protocol timeouts).
	e.Enable([]byte{7})

	require.True(t, e.SendPacket(7, []byte{1}))
	require.False(t, e.SendPacket(7, []byte{2}))
}

func TestEngineResetRadioInfoZeroesCounters(t *testing.T) {
	medium := radiotest.NewMedium()
	cfg := fastConfig()

	a := newEngine(t, medium.NewNode(), 0, cfg)
	b := newEngine(t, medium.NewNode(), 1, cfg)

	b.Enable([]byte{0, 1})
	a.Enable([]byte{0, 1})
	require.True(t, a.SendPacket(1, []byte{1}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok := b.GetPacket(ctx)
	require.True(t, ok)

	require.Eventually(t, func() bool { return a.RadioInfo().Sent > 0 }, time.Second, 10*time.Millisecond)

	a.ResetRadioInfo()
	require.Zero(t, a.RadioInfo().Sent)
}
