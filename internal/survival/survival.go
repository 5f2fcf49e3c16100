// Package survival implements the tier controller: the discrete state
// machine that derives the automaton's operating mode from its available
// funds and spend rate, with hysteresis so it does not flap at a boundary.
package survival

import (
	"sync"

	"github.com/automaton-run/automaton/internal/core"
)

// Signals is the pair of inputs the controller evaluates on each tick.
type Signals struct {
	LiquidCents      int64
	HourlySpendCents int64
}

// thresholdFor returns the tier that Signals would enter, ignoring
// hysteresis. Only LiquidCents gates tier boundaries per §4.2; HourlySpend is
// carried through for tasks/router consumption but does not itself move the
// tier.
func thresholdFor(s Signals) core.Tier {
	switch {
	case s.LiquidCents >= 2000:
		return core.TierHigh
	case s.LiquidCents >= 500:
		return core.TierNormal
	case s.LiquidCents >= 100:
		return core.TierLowCompute
	case s.LiquidCents >= 1:
		return core.TierCritical
	default:
		return core.TierDead
	}
}

// Controller holds the current tier and the hysteresis counter for pending
// upgrades. Zero value is not usable; construct with New.
type Controller struct {
	mu sync.Mutex

	current      core.Tier
	pendingTier  core.Tier
	pendingCount int

	subscribers []chan core.Tier
}

// New constructs a Controller starting in the tier implied by the given
// signals (no hysteresis delay on startup — the very first evaluation sets
// the true initial state).
func New(initial Signals) *Controller {
	return &Controller{current: thresholdFor(initial)}
}

// Current returns the controller's tier under lock.
func (c *Controller) Current() core.Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers a channel that receives the new tier on every change.
// The channel is buffered by the caller's choosing; Evaluate sends
// non-blockingly and drops the notification if the channel is full, since
// subscribers only ever care about the latest tier.
func (c *Controller) Subscribe(ch chan core.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, ch)
}

// Evaluate applies one tick of signals and returns the (possibly unchanged)
// resulting tier plus whether a change occurred this call.
//
// Downgrades apply immediately. Upgrades require the higher tier's threshold
// to hold for two consecutive evaluations — a single above-threshold reading
// starts a pending upgrade; a second consecutive one commits it; any reading
// that does not continue the same pending tier resets the counter.
func (c *Controller) Evaluate(s Signals) (core.Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := thresholdFor(s)

	if core.TierRank(target) <= core.TierRank(c.current) {
		changed := target != c.current
		c.pendingTier = ""
		c.pendingCount = 0
		if changed {
			c.current = target
			c.broadcastLocked(target)
		}
		return c.current, changed
	}

	// target is strictly better than current: hysteresis gate.
	if c.pendingTier != target {
		c.pendingTier = target
		c.pendingCount = 1
		return c.current, false
	}

	c.pendingCount++
	if c.pendingCount < 2 {
		return c.current, false
	}

	c.current = target
	c.pendingTier = ""
	c.pendingCount = 0
	c.broadcastLocked(target)
	return c.current, true
}

func (c *Controller) broadcastLocked(tier core.Tier) {
	for _, ch := range c.subscribers {
		select {
		case ch <- tier:
		default:
		}
	}
}

// AllowedTasks reports the task kinds permitted at a tier, per §4.2's effect
// column. The Router and Scheduler do not call it: the Router routes only
// the task kinds its matrix lists for a tier, and the Scheduler gates tasks
// by their CriticalAllowed flag.
func AllowedTasks(tier core.Tier) []core.TaskKind {
	switch tier {
	case core.TierHigh, core.TierNormal:
		return []core.TaskKind{core.TaskAgentTurn, core.TaskHeartbeatTriage, core.TaskSafetyCheck, core.TaskSummarization, core.TaskPlanning}
	case core.TierLowCompute:
		return []core.TaskKind{core.TaskAgentTurn, core.TaskHeartbeatTriage, core.TaskSafetyCheck}
	case core.TierCritical:
		return []core.TaskKind{core.TaskHeartbeatTriage, core.TaskSafetyCheck}
	default: // dead
		return nil
	}
}

// TaskAllowed reports whether a task kind may run at the given tier.
func TaskAllowed(tier core.Tier, kind core.TaskKind) bool {
	for _, k := range AllowedTasks(tier) {
		if k == kind {
			return true
		}
	}
	return false
}

// PerCallCeilingCents returns the tier-forced ceiling override, or -1 if the
// tier imposes none (the routing matrix's own ceiling applies instead).
func PerCallCeilingCents(tier core.Tier) int64 {
	if tier == core.TierCritical {
		return 300 // 3 cents, in hundredth-cents
	}
	return -1
}
