package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSpec is a parsed standard 5-field cron expression: minute hour
// day-of-month month day-of-week. There is no third-party cron-expression
// library anywhere in the retrieved corpus (checked every example repo's
// go.mod and source tree); this is hand-written against the standard
// library only — see DESIGN.md.
type CronSpec struct {
	minutes  fieldSet
	hours    fieldSet
	doms     fieldSet
	months   fieldSet
	dows     fieldSet
	original string
}

type fieldSet map[int]bool

func (f fieldSet) has(v int) bool { return f[v] }

// ParseCron parses a standard 5-field expression.
func ParseCron(expr string) (CronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return CronSpec{}, fmt.Errorf("scheduler: cron expression %q must have 5 fields, got %d", expr, len(fields))
	}

	minutes, err := parseField(fields[0], 0, 59)
	if err != nil {
		return CronSpec{}, fmt.Errorf("minute field: %w", err)
	}
	hours, err := parseField(fields[1], 0, 23)
	if err != nil {
		return CronSpec{}, fmt.Errorf("hour field: %w", err)
	}
	doms, err := parseField(fields[2], 1, 31)
	if err != nil {
		return CronSpec{}, fmt.Errorf("day-of-month field: %w", err)
	}
	months, err := parseField(fields[3], 1, 12)
	if err != nil {
		return CronSpec{}, fmt.Errorf("month field: %w", err)
	}
	dows, err := parseField(fields[4], 0, 6)
	if err != nil {
		return CronSpec{}, fmt.Errorf("day-of-week field: %w", err)
	}

	return CronSpec{minutes: minutes, hours: hours, doms: doms, months: months, dows: dows, original: expr}, nil
}

func parseField(raw string, min, max int) (fieldSet, error) {
	set := fieldSet{}
	for _, part := range strings.Split(raw, ",") {
		if err := parsePart(set, part, min, max); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func parsePart(set fieldSet, part string, min, max int) error {
	step := 1
	rangePart := part
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		rangePart = part[:idx]
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	var lo, hi int
	switch {
	case rangePart == "*":
		lo, hi = min, max
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		var err error
		lo, err = strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("invalid range start in %q", part)
		}
		hi, err = strconv.Atoi(bounds[1])
		if err != nil {
			return fmt.Errorf("invalid range end in %q", part)
		}
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return fmt.Errorf("invalid value %q", part)
		}
		lo, hi = v, v
	}

	if lo < min || hi > max || lo > hi {
		return fmt.Errorf("value %q out of range [%d,%d]", part, min, max)
	}
	for v := lo; v <= hi; v += step {
		set[v] = true
	}
	return nil
}

// Next returns the earliest time strictly after `after` that matches the
// expression, truncated to the minute as cron granularity demands.
func (c CronSpec) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	// Cron's day-of-month/day-of-week combination is OR'd when both are
	// restricted (standard POSIX cron behavior), AND'd when either is "*".
	domRestricted := len(c.doms) < 31
	dowRestricted := len(c.dows) < 7

	for i := 0; i < 5*366*24*60; i++ { // bounded search: at most ~5 years out
		var dayMatches bool
		if domRestricted && dowRestricted {
			dayMatches = c.doms.has(t.Day()) || c.dows.has(int(t.Weekday()))
		} else {
			dayMatches = c.doms.has(t.Day()) && c.dows.has(int(t.Weekday()))
		}

		if c.minutes.has(t.Minute()) && c.hours.has(t.Hour()) && c.months.has(int(t.Month())) && dayMatches {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// String returns the original expression text.
func (c CronSpec) String() string { return c.original }
