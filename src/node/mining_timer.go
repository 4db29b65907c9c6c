package node

import (
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// miningWindow is a Start command: arm the timer for d on behalf of
// generation gen.
type miningWindow struct {
	d   time.Duration
	gen uint64
}

// MiningTimer drives the simulated mining window. It is one-shot: Start arms
// it for one duration, the tick fires once, Cancel disarms a pending tick.
// Every window carries a generation number which the tick echoes back, so a
// tick that outlives a cancelled window identifies itself as stale.
//
// tickCh and the command channels are buffered so that callers holding the
// node lock never block against the run loop.
type MiningTimer struct {
	timerFactory timerFactory
	tickCh       chan uint64       //signals the end of the mining window
	startCh      chan miningWindow //arms the timer
	cancelCh     chan struct{}     //disarms the timer
	shutdownCh   chan struct{}     //exits the Run loop
}

func NewMiningTimer(timerFactory timerFactory) *MiningTimer {
	return &MiningTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan uint64, 1),
		startCh:      make(chan miningWindow, 1),
		cancelCh:     make(chan struct{}, 1),
		shutdownCh:   make(chan struct{}),
	}
}

// NewDelayMiningTimer returns a MiningTimer backed by time.After.
func NewDelayMiningTimer() *MiningTimer {
	return NewMiningTimer(func(d time.Duration) <-chan time.Time {
		return time.After(d)
	})
}

func (m *MiningTimer) Run() {
	var timer <-chan time.Time
	var gen uint64
	for {
		select {
		case <-timer:
			timer = nil
			select {
			case m.tickCh <- gen:
			default:
			}
		case w := <-m.startCh:
			// drop commands and ticks left over from a previous window
			select {
			case <-m.cancelCh:
			default:
			}
			select {
			case <-m.tickCh:
			default:
			}
			timer = m.timerFactory(w.d)
			gen = w.gen
		case <-m.cancelCh:
			timer = nil
		case <-m.shutdownCh:
			return
		}
	}
}

func (m *MiningTimer) Start(d time.Duration, gen uint64) {
	select {
	case m.startCh <- miningWindow{d: d, gen: gen}:
	default:
	}
}

func (m *MiningTimer) Cancel() {
	select {
	case m.cancelCh <- struct{}{}:
	default:
	}
}

func (m *MiningTimer) Shutdown() {
	close(m.shutdownCh)
}
