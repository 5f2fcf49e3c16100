package survival

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
)

func TestThresholdFor_Boundaries(t *testing.T) {
	cases := []struct {
		liquid int64
		want   core.Tier
	}{
		{2000, core.TierHigh},
		{5000, core.TierHigh},
		{1999, core.TierNormal},
		{500, core.TierNormal},
		{499, core.TierLowCompute},
		{100, core.TierLowCompute},
		{99, core.TierCritical},
		{1, core.TierCritical},
		{0, core.TierDead},
	}
	for _, tc := range cases {
		got := thresholdFor(Signals{LiquidCents: tc.liquid})
		assert.Equalf(t, tc.want, got, "liquid=%d", tc.liquid)
	}
}

func TestController_DowngradeIsImmediate(t *testing.T) {
	c := New(Signals{LiquidCents: 5000})
	require.Equal(t, core.TierHigh, c.Current())

	tier, changed := c.Evaluate(Signals{LiquidCents: 50})
	assert.True(t, changed)
	assert.Equal(t, core.TierCritical, tier)
}

func TestController_UpgradeRequiresTwoConsecutiveEvaluations(t *testing.T) {
	c := New(Signals{LiquidCents: 50}) // critical
	require.Equal(t, core.TierCritical, c.Current())

	tier, changed := c.Evaluate(Signals{LiquidCents: 5000})
	assert.False(t, changed, "first above-threshold reading must not commit yet")
	assert.Equal(t, core.TierCritical, tier)

	tier, changed = c.Evaluate(Signals{LiquidCents: 5000})
	assert.True(t, changed, "second consecutive reading must commit the upgrade")
	assert.Equal(t, core.TierHigh, tier)
}

func TestController_UpgradeResetsOnNonConsecutiveReading(t *testing.T) {
	c := New(Signals{LiquidCents: 50})

	_, changed := c.Evaluate(Signals{LiquidCents: 5000}) // pending high
	assert.False(t, changed)

	_, changed = c.Evaluate(Signals{LiquidCents: 1000}) // pending normal now, resets counter
	assert.False(t, changed)

	tier, changed := c.Evaluate(Signals{LiquidCents: 1000}) // second consecutive normal reading
	assert.True(t, changed)
	assert.Equal(t, core.TierNormal, tier)
}

func TestController_BroadcastsOnChange(t *testing.T) {
	c := New(Signals{LiquidCents: 5000})
	ch := make(chan core.Tier, 4)
	c.Subscribe(ch)

	c.Evaluate(Signals{LiquidCents: 0})

	select {
	case got := <-ch:
		assert.Equal(t, core.TierDead, got)
	default:
		t.Fatal("expected a broadcast on downgrade")
	}
}

func TestTaskAllowed(t *testing.T) {
	assert.True(t, TaskAllowed(core.TierHigh, core.TaskPlanning))
	assert.False(t, TaskAllowed(core.TierLowCompute, core.TaskPlanning))
	assert.True(t, TaskAllowed(core.TierLowCompute, core.TaskAgentTurn))
	assert.True(t, TaskAllowed(core.TierCritical, core.TaskSafetyCheck))
	assert.False(t, TaskAllowed(core.TierCritical, core.TaskAgentTurn))
	assert.False(t, TaskAllowed(core.TierDead, core.TaskHeartbeatTriage))
}

func TestPerCallCeilingCents(t *testing.T) {
	assert.Equal(t, int64(300), PerCallCeilingCents(core.TierCritical))
	assert.Equal(t, int64(-1), PerCallCeilingCents(core.TierNormal))
}
