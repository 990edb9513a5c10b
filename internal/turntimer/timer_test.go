package turntimer

import (
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

type timeoutRecorder struct {
	mu     sync.Mutex
	calls  int
	reason string
	winner entity.Side
}

func (that *timeoutRecorder) onTimeout(reason string, winner entity.Side) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.calls++
	that.reason = reason
	that.winner = winner
}

func (that *timeoutRecorder) Calls() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.calls
}

// newManualTimer returns a timer whose goroutine never ticks on its own, so tests drive it
// through tick and the fake clock.
func newManualTimer(budget time.Duration, recorder *timeoutRecorder) (*Timer, *fakeClock) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	return New(budget, entity.SideAttacker, recorder.onTimeout, WithClock(clock.Now), WithInterval(time.Hour)), clock
}

func TestTimer_Tick(t *testing.T) {
	t.Run("Only the active side is charged", func(t *testing.T) {
		// Given: a running timer with one minute per side
		timer, clock := newManualTimer(time.Minute, &timeoutRecorder{})
		timer.Start()
		defer timer.Stop()

		// When: ten seconds pass
		clock.Advance(10 * time.Second)
		timer.tick()

		// Then: only the attacker lost time
		assert.Equal(t, entity.Timers{Attacker: 50_000, Defender: 60_000, ActiveSide: entity.SideAttacker}, timer.Times())
	})

	t.Run("Elapsed time is measured from the previous tick", func(t *testing.T) {
		timer, clock := newManualTimer(time.Minute, &timeoutRecorder{})
		timer.Start()
		defer timer.Stop()

		for range 3 {
			clock.Advance(150 * time.Millisecond)
			timer.tick()
		}

		assert.Equal(t, int64(59_550), timer.Times().Attacker)
	})

	t.Run("Stopped timer does not charge anyone", func(t *testing.T) {
		timer, clock := newManualTimer(time.Minute, &timeoutRecorder{})
		timer.Start()
		timer.Stop()

		clock.Advance(10 * time.Second)
		timer.tick()

		assert.Equal(t, int64(60_000), timer.Times().Attacker)
		assert.False(t, timer.Running())
	})
}

func TestTimer_SwitchPlayer(t *testing.T) {
	// Given: a running timer where the attacker has used some time
	timer, clock := newManualTimer(time.Minute, &timeoutRecorder{})
	timer.Start()
	defer timer.Stop()

	clock.Advance(5 * time.Second)
	timer.tick()
	before := timer.Times()

	// When: the turn passes to the defender
	timer.SwitchPlayer()

	// Then: both budgets are unchanged and the defender is now charged
	after := timer.Times()
	assert.Equal(t, before.Attacker, after.Attacker)
	assert.Equal(t, before.Defender, after.Defender)
	assert.Equal(t, entity.SideDefender, after.ActiveSide)

	clock.Advance(2 * time.Second)
	timer.tick()
	assert.Equal(t, int64(55_000), timer.Times().Attacker)
	assert.Equal(t, int64(58_000), timer.Times().Defender)
}

func TestTimer_Timeout(t *testing.T) {
	t.Run("Expired side loses and the timer stops itself", func(t *testing.T) {
		// Given: a timer with the defender to move
		recorder := &timeoutRecorder{}
		timer, clock := newManualTimer(time.Second, recorder)
		timer.Start()
		timer.SwitchPlayer()

		// When: more than the budget passes
		clock.Advance(2 * time.Second)
		timer.tick()

		// Then: the attacker wins on the defender's timeout
		assert.Equal(t, 1, recorder.Calls())
		assert.Equal(t, entity.ReasonDefenderTimeout, recorder.reason)
		assert.Equal(t, entity.SideAttacker, recorder.winner)
		assert.Equal(t, int64(0), timer.Times().Defender)
		assert.False(t, timer.Running())
		assert.True(t, timer.Expired())

		// And: further ticks, stops and starts change nothing
		timer.tick()
		timer.Stop()
		timer.Start()
		assert.Equal(t, 1, recorder.Calls())
		assert.False(t, timer.Running())
	})

	t.Run("Real ticker fires the callback", func(t *testing.T) {
		recorder := &timeoutRecorder{}
		timer := New(30*time.Millisecond, entity.SideAttacker, recorder.onTimeout, WithInterval(5*time.Millisecond))

		timer.Start()

		require.Eventually(t, func() bool { return recorder.Calls() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, entity.ReasonAttackerTimeout, recorder.reason)
		assert.Equal(t, entity.SideDefender, recorder.winner)
	})
}

func TestTimer_BudgetsOnlyDecrease(t *testing.T) {
	timer, clock := newManualTimer(time.Minute, &timeoutRecorder{})
	timer.Start()
	defer timer.Stop()

	previous := timer.Times()
	for i := range 20 {
		clock.Advance(time.Duration(i*37) * time.Millisecond)
		timer.tick()
		if i%3 == 0 {
			timer.SwitchPlayer()
		}

		current := timer.Times()
		assert.LessOrEqual(t, current.Attacker, previous.Attacker)
		assert.LessOrEqual(t, current.Defender, previous.Defender)
		previous = current
	}
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	timer := New(time.Minute, entity.SideAttacker, nil)

	assert.NotPanics(t, func() {
		timer.Stop()
		timer.Start()
		timer.Stop()
		timer.Stop()
	})
}

func TestTimeoutReason(t *testing.T) {
	assert.Equal(t, "attacker_timeout", TimeoutReason(entity.SideAttacker))
	assert.Equal(t, "defender_timeout", TimeoutReason(entity.SideDefender))
}
