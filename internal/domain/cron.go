package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronEntry is a scheduling rule plus the message body/fields it spawns
// when it fires. Entries are never consumed; the daemon tracks fire
// state in memory only (spec.md §9).
type CronEntry struct {
	Path     string
	Schedule Schedule
	Routine  string
	Extra    map[string]string
	Body     string
	TZ       *time.Location // timezone to evaluate Schedule in; nil = time.Local
}

// Location returns the entry's evaluation timezone, defaulting to local.
func (c CronEntry) Location() *time.Location {
	if c.TZ != nil {
		return c.TZ
	}
	return time.Local
}

// Schedule is a classic 5-field cron expression: minute, hour,
// day-of-month, month, day-of-week. Each field is a set of accepted
// values; "*" is represented as a nil set (matches everything).
type Schedule struct {
	Minute     fieldSet
	Hour       fieldSet
	DayOfMonth fieldSet
	Month      fieldSet
	DayOfWeek  fieldSet
	raw        string
}

// fieldSet is nil for "*" (match-all) or a set of accepted integers.
type fieldSet map[int]struct{}

func (f fieldSet) matches(v int) bool {
	if f == nil {
		return true
	}
	_, ok := f[v]
	return ok
}

// String returns the original 5-field expression.
func (s Schedule) String() string {
	return s.raw
}

// ParseSchedule parses a classic 5-field cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("cron schedule %q: expected 5 fields, got %d", expr, len(fields))
	}

	ranges := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 7}, // 0 and 7 both mean Sunday
	}

	sets := make([]fieldSet, 5)
	for i, r := range ranges {
		set, err := parseField(fields[i], r.min, r.max)
		if err != nil {
			return Schedule{}, fmt.Errorf("cron schedule %q: %s field: %w", expr, r.name, err)
		}
		sets[i] = set
	}

	dow := sets[4]
	if dow != nil {
		if _, ok := dow[7]; ok {
			delete(dow, 7)
			dow[0] = struct{}{}
		}
	}

	return Schedule{
		Minute:     sets[0],
		Hour:       sets[1],
		DayOfMonth: sets[2],
		Month:      sets[3],
		DayOfWeek:  sets[4],
		raw:        expr,
	}, nil
}

// parseField parses one comma-separated cron field, supporting "*",
// lists ("1,2,3"), ranges ("1-5"), and steps ("*/5", "1-10/2").
func parseField(field string, min, max int) (fieldSet, error) {
	if field == "*" {
		return nil, nil
	}

	result := fieldSet{}
	for _, part := range strings.Split(field, ",") {
		step := 1
		rangePart := part
		if idx := strings.Index(part, "/"); idx >= 0 {
			rangePart = part[:idx]
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step in %q", part)
			}
			step = s
		}

		lo, hi := min, max
		switch {
		case rangePart == "*":
			// lo/hi already the field's full range
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			a, err1 := strconv.Atoi(bounds[0])
			b, err2 := strconv.Atoi(bounds[1])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid range %q", rangePart)
			}
			lo, hi = a, b
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", rangePart)
			}
			lo, hi = v, v
		}

		if lo < min || hi > max || lo > hi {
			return nil, fmt.Errorf("value %q out of range [%d,%d]", rangePart, min, max)
		}
		for v := lo; v <= hi; v += step {
			result[v] = struct{}{}
		}
	}
	return result, nil
}

// Matches reports whether t falls on this schedule's minute.
func (s Schedule) Matches(t time.Time) bool {
	dow := int(t.Weekday())
	return s.Minute.matches(t.Minute()) &&
		s.Hour.matches(t.Hour()) &&
		s.DayOfMonth.matches(t.Day()) &&
		s.Month.matches(int(t.Month())) &&
		s.DayOfWeek.matches(dow)
}

// FireKey uniquely identifies a (cron file, minute) firing for dedup.
func FireKey(path string, t time.Time) string {
	return path + "@" + t.Format("200601021504")
}
