// internal/game/timers.go
package game

import (
	"sync"
	"sync/atomic"
	"time"
)

// countdown is a cancellable ticking timer. It calls onTick with the
// remaining count after every interval and onExpire once when the count
// reaches zero. stop is idempotent: cancelling an already-cancelled
// countdown is a no-op, and a countdown that already expired can still be
// stopped safely.
type countdown struct {
	remaining int32
	done      chan struct{}
	once      sync.Once
}

func newCountdown(units int, interval time.Duration, onTick func(remaining int), onExpire func()) *countdown {
	c := &countdown{
		remaining: int32(units),
		done:      make(chan struct{}),
	}
	go c.run(interval, onTick, onExpire)
	return c
}

func (c *countdown) run(interval time.Duration, onTick func(remaining int), onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			left := atomic.AddInt32(&c.remaining, -1)
			if left <= 0 {
				onExpire()
				return
			}
			if onTick != nil {
				onTick(int(left))
			}
		}
	}
}

// stop cancels the countdown. Safe to call multiple times and from
// concurrent paths (manual win racing a timeout).
func (c *countdown) stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.done) })
}

// left returns the remaining units, never negative. Nil-safe so snapshots
// work before the timers exist.
func (c *countdown) left() int {
	if c == nil {
		return 0
	}
	v := atomic.LoadInt32(&c.remaining)
	if v < 0 {
		return 0
	}
	return int(v)
}

// startTurnTimerLocked (re)arms the turn countdown for the current player.
// Each tick broadcasts the remaining value; expiry forces the turn to end
// and the new current player's timer is armed by endTurnLocked, so the
// cycle refreshes until the game ends.
// Assumes lock is held by caller.
func (r *Room) startTurnTimerLocked() {
	r.turnTimer.stop()
	r.turnTimer = nil
	if r.rules.TurnSeconds <= 0 || !r.started || r.ended {
		return
	}

	turn := r.turnCounter
	r.turnTimer = newCountdown(r.rules.TurnSeconds, r.tickInterval,
		func(remaining int) {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			if r.ended || r.turnCounter != turn {
				return
			}
			r.fireEvent(GameEvent{
				Type:    EventTurnTick,
				Player:  &EventPlayer{ID: r.currentTurn},
				Payload: map[string]interface{}{"remaining": remaining},
			})
		},
		func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			// A play that landed just before expiry bumped turnCounter;
			// this timer lost the race and must not act.
			if r.ended || r.turnCounter != turn {
				return
			}
			expired := r.currentTurn
			r.log.WithField("player", expired).Info("turn timer expired")
			r.fireEvent(GameEvent{
				Type:   EventTurnExpired,
				Player: &EventPlayer{ID: expired},
			})
			r.logActionLocked(expired, "turn_expired", nil)
			r.endTurnLocked()
			r.broadcastStateLocked()
		})
}

// startRoundTimerLocked (re)arms the round countdown. Expiry forces the
// round to end regardless of in-progress turns.
// Assumes lock is held by caller.
func (r *Room) startRoundTimerLocked() {
	r.roundTimer.stop()
	r.roundTimer = nil
	if r.rules.RoundSeconds <= 0 || !r.started || r.ended {
		return
	}

	round := r.currentRound
	r.roundTimer = newCountdown(r.rules.RoundSeconds, r.tickInterval,
		nil,
		func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			if r.ended || r.currentRound != round {
				return
			}
			r.log.WithField("round", round).Info("round timer expired")
			r.logActionLocked(r.currentTurn, "round_expired", map[string]interface{}{"round": round})
			r.endRoundLocked()
			r.broadcastStateLocked()
		})
}

// stopTimersLocked cancels both countdowns. Idempotent: re-entrant
// cancellation from a manual win and a concurrent timeout is safe.
// Assumes lock is held by caller.
func (r *Room) stopTimersLocked() {
	r.turnTimer.stop()
	r.roundTimer.stop()
}
