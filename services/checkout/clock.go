package checkout

import (
	"sync"
	"time"

	"github.com/goswami6/satyampay-checkout/lib/mytime"
	"github.com/goswami6/satyampay-checkout/services/checkoutapi"
)

type ClockState string

const (
	ClockInactive ClockState = "inactive"
	ClockRunning  ClockState = "running"
	ClockExpired  ClockState = "expired"
)

const urgentThreshold = 60

// ExpiryClock counts down the remaining seconds of a dynamic QR code. The count only goes down
// and expired is final. The server has the last word, so the count is an estimate.
type ExpiryClock struct {
	mutex     sync.Mutex
	state     ClockState
	remaining int64
	started   bool
	stopOnce  sync.Once
	done      chan struct{}
}

func NewExpiryClock(target checkoutapi.CheckoutTarget) *ExpiryClock {
	c := &ExpiryClock{
		state: ClockInactive,
		done:  make(chan struct{}),
	}
	if target.HasCountdown() {
		c.state = ClockRunning
		c.remaining = target.RemainingSeconds
		if target.Status == checkoutapi.TargetStatusExpired || c.remaining <= 0 {
			c.state = ClockExpired
			c.remaining = 0
		}
	}
	return c
}

// Start ticks once per second until expired or stopped, then calls onExpire once.
func (c *ExpiryClock) Start(newTicker mytime.TickerFactory, onExpire func()) {
	c.mutex.Lock()
	if c.state != ClockRunning || c.started {
		c.mutex.Unlock()
		return
	}
	c.started = true
	c.mutex.Unlock()

	ticker := newTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C():
				if c.Tick() == ClockExpired {
					c.Stop()
					if onExpire != nil {
						onExpire()
					}
					return
				}
			}
		}
	}()
}

func (c *ExpiryClock) Tick() ClockState {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == ClockRunning {
		c.remaining--
		if c.remaining <= 0 {
			c.remaining = 0
			c.state = ClockExpired
		}
	}
	return c.state
}

// ForceExpire applies an expiry reported by the server. Returns true when this changed the state.
func (c *ExpiryClock) ForceExpire() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == ClockExpired {
		return false
	}
	c.state = ClockExpired
	c.remaining = 0
	return true
}

// Stop tears down the ticker, safe to call more than once.
func (c *ExpiryClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *ExpiryClock) State() ClockState {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state
}

func (c *ExpiryClock) Remaining() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.remaining
}

func (c *ExpiryClock) Urgent() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state == ClockRunning && c.remaining < urgentThreshold
}
