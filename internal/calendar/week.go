// Package calendar computes the week windows used for progress reporting
// and normalizes the timestamp shapes found in stored documents.
//
// Weeks start on Monday at 00:00 in the calendar's location. End is the
// displayed last instant (Sunday 23:59:59.999); membership runs up to the
// next Monday 00:00, so consecutive weeks leave no gap at sub-millisecond
// precision.
package calendar

import "time"

// Window is a time range starting at Start. When Until is set the range
// is [Start, Until); otherwise it is [Start, End].
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Until time.Time `json:"-"`
}

// Contains reports whether t lies within the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if !w.Until.IsZero() {
		return t.Before(w.Until)
	}
	return !t.After(w.End)
}

// Limit is the latest instant a store query needs to read to cover w.
// It may include Until itself; Contains filters that instant out.
func (w Window) Limit() time.Time {
	if !w.Until.IsZero() {
		return w.Until
	}
	return w.End
}

// Calendar binds week arithmetic to a location.
type Calendar struct {
	loc *time.Location
}

// New returns a calendar for loc. A nil location means UTC.
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	t = t.In(c.Location())
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, c.Location())
}

// Week returns the window weeksAgo weeks before the week containing now.
// Day arithmetic goes through time.Date so DST shifts keep midnight aligned.
func (c Calendar) Week(now time.Time, weeksAgo int) Window {
	cur := c.StartOfWeek(now)
	y, m, d := cur.Date()
	start := time.Date(y, m, d-7*weeksAgo, 0, 0, 0, 0, c.Location())
	sy, sm, sd := start.Date()
	end := time.Date(sy, sm, sd+6, 23, 59, 59, int(999*time.Millisecond), c.Location())
	next := time.Date(sy, sm, sd+7, 0, 0, 0, 0, c.Location())
	return Window{Start: start, End: end, Until: next}
}

// Weeks returns n consecutive windows, newest first.
func (c Calendar) Weeks(now time.Time, n int) []Window {
	out := make([]Window, n)
	for i := range out {
		out[i] = c.Week(now, i)
	}
	return out
}

// RollingWindow spans from the start of the week weeks-1 weeks ago up to now.
// For weeks=4 this is [startOfCurrentWeek - 21 days, now].
func (c Calendar) RollingWindow(now time.Time, weeks int) Window {
	if weeks < 1 {
		weeks = 1
	}
	return Window{Start: c.Week(now, weeks-1).Start, End: now.In(c.Location())}
}
