package calendar_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
)

func TestStartOfWeek_Monday(t *testing.T) {
	cal := calendar.New(time.UTC)

	cases := map[string]time.Time{
		"monday midnight": time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		"wednesday noon":  time.Date(2026, 10, 14, 12, 30, 0, 0, time.UTC),
		"sunday late":     time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC),
	}
	want := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	for name, in := range cases {
		if got := cal.StartOfWeek(in); !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestWeek_Bounds(t *testing.T) {
	cal := calendar.New(time.UTC)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	w := cal.Week(now, 0)
	if !w.Start.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %v", w.Start)
	}
	wantEnd := time.Date(2026, 10, 18, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Errorf("expected end %v, got %v", wantEnd, w.End)
	}
	if w.End.Sub(w.Start) != 7*24*time.Hour-time.Millisecond {
		t.Errorf("expected a 7 day span, got %v", w.End.Sub(w.Start))
	}
}

func TestWeeks_ContiguousAndNonOverlapping(t *testing.T) {
	for _, locName := range []string{"UTC", "Europe/Berlin", "America/Sao_Paulo"} {
		loc, err := time.LoadLocation(locName)
		if err != nil {
			t.Skipf("timezone data unavailable: %v", err)
		}
		cal := calendar.New(loc)
		// Week 1 spans the March 2026 European DST switch.
		now := time.Date(2026, 4, 1, 10, 0, 0, 0, loc)

		weeks := cal.Weeks(now, 4)
		for i := 0; i+1 < len(weeks); i++ {
			newer, older := weeks[i], weeks[i+1]
			if !older.End.Add(time.Millisecond).Equal(newer.Start) {
				t.Errorf("%s: week %d end %v does not abut week %d start %v", locName, i+1, older.End, i, newer.Start)
			}
			if older.Contains(newer.Start) || newer.Contains(older.End) {
				t.Errorf("%s: weeks %d and %d overlap", locName, i, i+1)
			}
		}
		for i, w := range weeks {
			if w.Start.Weekday() != time.Monday || w.Start.Hour() != 0 {
				t.Errorf("%s: week %d starts at %v", locName, i, w.Start)
			}
			if w.End.Weekday() != time.Sunday || w.End.Hour() != 23 || w.End.Nanosecond() != int(999*time.Millisecond) {
				t.Errorf("%s: week %d ends at %v", locName, i, w.End)
			}
		}
	}
}

func TestWindow_ContainsStartAndEnd(t *testing.T) {
	w := calendar.New(time.UTC).Week(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), 0)

	if !w.Contains(w.Start) {
		t.Error("expected start to be inside the window")
	}
	if !w.Contains(w.End) {
		t.Error("expected end to be inside the window")
	}
	if !w.Contains(w.End.Add(500 * time.Microsecond)) {
		t.Error("expected sub-millisecond instants after end to stay in the week")
	}
	if w.Contains(w.End.Add(time.Millisecond)) {
		t.Error("expected the instant after end to be outside")
	}
	if w.Contains(w.Start.Add(-time.Nanosecond)) {
		t.Error("expected the instant before start to be outside")
	}
}

func TestWeeks_SubMillisecondInstantsBelongToOneWeek(t *testing.T) {
	cal := calendar.New(time.UTC)
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	ts := time.Date(2026, 3, 8, 23, 59, 59, 999500000, time.UTC)

	holding := 0
	for i, w := range cal.Weeks(now, 4) {
		if w.Contains(ts) {
			holding++
			if i != 1 {
				t.Errorf("expected week 1 to hold %v, got week %d", ts, i)
			}
		}
	}
	if holding != 1 {
		t.Errorf("expected exactly one week to hold %v, got %d", ts, holding)
	}
	if !cal.RollingWindow(now, 4).Contains(ts) {
		t.Errorf("expected rolling window to hold %v", ts)
	}
}

func TestWindow_LimitCoversNextStart(t *testing.T) {
	cal := calendar.New(time.UTC)
	w := cal.Week(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), 0)

	if !w.Limit().Equal(w.Until) || !w.Until.Equal(w.End.Add(time.Millisecond)) {
		t.Errorf("expected limit at next week start, got limit %v until %v", w.Limit(), w.Until)
	}
	if w.Contains(w.Until) {
		t.Error("expected next week start to be outside")
	}

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	if r := cal.RollingWindow(now, 4); !r.Limit().Equal(now) {
		t.Errorf("expected rolling limit %v, got %v", now, r.Limit())
	}
}

func TestRollingWindow_FourWeeks(t *testing.T) {
	cal := calendar.New(time.UTC)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	w := cal.RollingWindow(now, 4)
	wantStart := time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("expected start %v, got %v", wantStart, w.Start)
	}
	if !w.End.Equal(now) {
		t.Errorf("expected end %v, got %v", now, w.End)
	}
}
