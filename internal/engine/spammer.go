package engine

import (
	"sync"
	"time"

	"github.com/kjell-dtr/dtr-go/internal/platform"
)

// retransmitTimer implements the sender/"spammer" timer of spec.md §4.C and
// the handshake timer of §4.D: Idle/Running(period), rebroadcasting a
// payload on every expiry until stopped. The two specced timers differ only
// in what they rebroadcast — the sender timer repeats one packet unchanged,
// the handshake timer re-reads the current candidate topology each tick —
// so both are modeled here as a payload() callback rather than a fixed
// buffer, and run on their own goroutine exactly because spec.md §5 singles
// out the timer callback as the one thing that touches engine state (via
// atomics) from outside the engine task.
type retransmitTimer struct {
	clock platform.Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// Start arms the timer at period, invoking send(payload()) and then onFire()
// on every expiry until Stop is called. It is a no-op if already running, per
// spec.md §4.C's "start while Running is a no-op" rule; the return reports
// whether it actually started.
func (t *retransmitTimer) Start(period time.Duration, payload func() []byte, send func([]byte) error, onFire func()) bool {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()

		return false
	}
	t.running = true
	stopCh := make(chan struct{})
	t.stopCh = stopCh
	t.mu.Unlock()

	go func() {
		for {
			ch, stop := t.clock.NewTimer(period)

			select {
			case <-ch:
				if raw := payload(); raw != nil {
					_ = send(raw)
				}
				if onFire != nil {
					onFire()
				}
			case <-stopCh:
				stop()

				return
			}
		}
	}()

	return true
}

// Stop transitions Running -> Idle, reporting whether it actually stopped a
// running timer (false if already idle), matching time.Timer.Stop's
// idempotent-caller contract required by spec.md §5.
func (t *retransmitTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}

	t.running = false
	close(t.stopCh)

	return true
}
