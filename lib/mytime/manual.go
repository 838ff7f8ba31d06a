package mytime

import (
	"sync"
	"time"
)

// ManualTicker only ticks when told to.
type ManualTicker struct {
	mutex   sync.Mutex
	c       chan time.Time
	stopped bool
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		c: make(chan time.Time),
	}
}

// Factory returns a TickerFactory that always hands out this ticker.
func (t *ManualTicker) Factory() TickerFactory {
	return func(d time.Duration) Ticker {
		return t
	}
}

func (t *ManualTicker) C() <-chan time.Time {
	return t.c
}

// Tick blocks until the consumer received the tick. Returns false when the ticker was stopped.
func (t *ManualTicker) Tick() bool {
	t.mutex.Lock()
	stopped := t.stopped
	t.mutex.Unlock()
	if stopped {
		return false
	}

	select {
	case t.c <- ExampleTime:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (t *ManualTicker) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.stopped = true
}

func (t *ManualTicker) Stopped() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.stopped
}
