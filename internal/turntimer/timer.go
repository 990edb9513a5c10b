package turntimer

import (
	"sync"
	"time"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

const DefaultInterval = 100 * time.Millisecond

// TimeoutFunc is called once, from the timer goroutine, when a side runs out of time.
type TimeoutFunc func(reason string, winner entity.Side)

type Option func(*Timer)

// WithInterval sets the polling interval.
func WithInterval(interval time.Duration) Option {
	return func(t *Timer) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// Timer is a two-sided game clock. The active side's budget is charged with the wall-clock
// time elapsed since the previous tick, so polling jitter does not add up.
type Timer struct {
	mu sync.Mutex

	attacker time.Duration
	defender time.Duration
	active   entity.Side

	lastTick time.Time
	running  bool
	expired  bool
	done     chan struct{}

	interval  time.Duration
	now       func() time.Time
	onTimeout TimeoutFunc
}

func New(budget time.Duration, starting entity.Side, onTimeout TimeoutFunc, opts ...Option) *Timer {
	timer := &Timer{
		attacker:  budget,
		defender:  budget,
		active:    starting,
		interval:  DefaultInterval,
		now:       time.Now,
		onTimeout: onTimeout,
	}

	for _, opt := range opts {
		opt(timer)
	}

	return timer
}

// Start begins charging the active side. It does nothing if the timer is running or expired.
func (that *Timer) Start() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.running || that.expired {
		return
	}

	that.running = true
	that.lastTick = that.now()
	that.done = make(chan struct{})

	go that.run(that.done, that.interval)
}

// Stop halts the clock. Stopping a stopped or expired timer is a no-op.
func (that *Timer) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.halt()
}

// SwitchPlayer hands the clock to the other side and restarts the reference instant.
// Neither remaining budget changes.
func (that *Timer) SwitchPlayer() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.active = that.active.Opponent()
	that.lastTick = that.now()
}

func (that *Timer) Times() entity.Timers {
	that.mu.Lock()
	defer that.mu.Unlock()

	return entity.Timers{
		Attacker:   that.attacker.Milliseconds(),
		Defender:   that.defender.Milliseconds(),
		ActiveSide: that.active,
	}
}

func (that *Timer) Running() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.running
}

// Expired reports whether a side has run out of time. It turns true before the
// timeout callback runs.
func (that *Timer) Expired() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.expired
}

func (that *Timer) run(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			that.tick()
		}
	}
}

func (that *Timer) tick() {
	that.mu.Lock()

	if !that.running {
		that.mu.Unlock()
		return
	}

	now := that.now()
	elapsed := max(now.Sub(that.lastTick), 0)
	that.lastTick = now

	budget := that.budget(that.active)
	*budget -= elapsed

	if *budget > 0 {
		that.mu.Unlock()
		return
	}

	*budget = 0
	loser := that.active
	that.expired = true
	that.halt()
	onTimeout := that.onTimeout
	that.mu.Unlock()

	if onTimeout != nil {
		onTimeout(TimeoutReason(loser), loser.Opponent())
	}
}

// halt must be called with the mutex held.
func (that *Timer) halt() {
	if !that.running {
		return
	}

	that.running = false
	close(that.done)
}

func (that *Timer) budget(side entity.Side) *time.Duration {
	if side == entity.SideDefender {
		return &that.defender
	}

	return &that.attacker
}

// TimeoutReason is the win reason reported when side runs out of time.
func TimeoutReason(side entity.Side) string {
	if side == entity.SideDefender {
		return entity.ReasonDefenderTimeout
	}

	return entity.ReasonAttackerTimeout
}
