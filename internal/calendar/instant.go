package calendar

import (
	"strconv"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToInstant converts a stored timestamp into a time.Time.
//
// Accepted shapes: time.Time and *time.Time, driver types exposing Time()
// or AsTime(), RFC3339 and date strings, epoch milliseconds as numbers,
// and {seconds, nanoseconds} maps (with or without leading underscores).
// The second result is false when v holds no usable instant.
func ToInstant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case interface{ AsTime() time.Time }:
		ts := t.AsTime()
		return ts, !ts.IsZero()
	case interface{ Time() time.Time }:
		ts := t.Time()
		return ts, !ts.IsZero()
	case string:
		return parseString(t)
	case int:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	case float64:
		return time.UnixMilli(int64(t)), true
	case map[string]any:
		return fromSecondsMap(t)
	}
	return time.Time{}, false
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

func fromSecondsMap(m map[string]any) (time.Time, bool) {
	secs, ok := number(firstOf(m, "seconds", "_seconds"))
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := number(firstOf(m, "nanoseconds", "_nanoseconds", "nanos"))
	return time.Unix(secs, nanos), true
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func number(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
