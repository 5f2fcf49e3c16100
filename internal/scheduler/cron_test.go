package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) CronSpec {
	t.Helper()
	c, err := ParseCron(expr)
	require.NoError(t, err)
	return c
}

func TestParseCron_RejectsWrongFieldCount(t *testing.T) {
	_, err := ParseCron("* * *")
	assert.Error(t, err)
}

func TestCron_EveryMinute(t *testing.T) {
	c := mustParse(t, "* * * * *")
	after := time.Date(2026, 1, 1, 12, 30, 15, 0, time.UTC)
	next := c.Next(after)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 31, 0, 0, time.UTC), next)
}

func TestCron_EveryFiveMinutes(t *testing.T) {
	c := mustParse(t, "*/5 * * * *")
	after := time.Date(2026, 1, 1, 12, 32, 0, 0, time.UTC)
	next := c.Next(after)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 35, 0, 0, time.UTC), next)
}

func TestCron_DailyAtHour(t *testing.T) {
	c := mustParse(t, "0 9 * * *")
	after := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	next := c.Next(after)
	assert.Equal(t, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestCron_WeekdaysOnly(t *testing.T) {
	c := mustParse(t, "0 9 * * 1-5")
	// 2026-01-03 is a Saturday; next weekday 9am is Monday 2026-01-05.
	after := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	next := c.Next(after)
	assert.Equal(t, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), next)
}

func TestCron_ListOfHours(t *testing.T) {
	c := mustParse(t, "0 6,18 * * *")
	after := time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)
	next := c.Next(after)
	assert.Equal(t, time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC), next)
}
