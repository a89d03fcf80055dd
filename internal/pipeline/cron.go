package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronField matches one time component. A nil set matches everything.
type cronField struct {
	set map[int]bool
}

func (f cronField) matches(val int) bool {
	return f.set == nil || f.set[val]
}

// parseCronField parses one field within [lo, hi]. Supported forms are "*",
// "5", "1,15", "1-5", "*/10" and "0-30/5", and comma lists of those.
func parseCronField(field string, lo, hi int) (cronField, error) {
	if field == "*" {
		return cronField{}, nil
	}

	set := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		rng, step := part, 1
		if i := strings.IndexByte(part, '/'); i >= 0 {
			s, err := strconv.Atoi(part[i+1:])
			if err != nil || s <= 0 {
				return cronField{}, fmt.Errorf("invalid step in %q", part)
			}
			rng, step = part[:i], s
		}

		start, end := lo, hi
		switch {
		case rng == "*":
		case strings.Contains(rng, "-"):
			bounds := strings.SplitN(rng, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil || a > b {
				return cronField{}, fmt.Errorf("invalid range %q", rng)
			}
			start, end = a, b
		default:
			v, err := strconv.Atoi(rng)
			if err != nil {
				return cronField{}, fmt.Errorf("invalid cron field value %q: %w", rng, err)
			}
			start, end = v, v
		}
		if start < lo || end > hi {
			return cronField{}, fmt.Errorf("%q out of range %d-%d", part, lo, hi)
		}
		for v := start; v <= end; v += step {
			set[v] = true
		}
	}
	return cronField{set: set}, nil
}

// Schedule is a parsed five-field cron expression.
type Schedule struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

// ParseCron parses "minute hour day-of-month month day-of-week".
func ParseCron(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	specs := []struct {
		name   string
		lo, hi int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 6},
	}
	var s Schedule
	targets := []*cronField{&s.minute, &s.hour, &s.dayOfMonth, &s.month, &s.dayOfWeek}
	for i, spec := range specs {
		f, err := parseCronField(fields[i], spec.lo, spec.hi)
		if err != nil {
			return Schedule{}, fmt.Errorf("parsing %s field: %w", spec.name, err)
		}
		*targets[i] = f
	}
	return s, nil
}

func (s Schedule) matches(t time.Time) bool {
	return s.minute.matches(t.Minute()) &&
		s.hour.matches(t.Hour()) &&
		s.dayOfMonth.matches(t.Day()) &&
		s.month.matches(int(t.Month())) &&
		s.dayOfWeek.matches(int(t.Weekday()))
}

// Next returns the first matching minute strictly after after, searching up
// to one year ahead.
func (s Schedule) Next(after time.Time) (time.Time, error) {
	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(366 * 24 * time.Hour)
	for candidate.Before(limit) {
		if s.matches(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching cron time found within one year")
}
