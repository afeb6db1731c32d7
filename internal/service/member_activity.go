package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"golang.org/x/sync/errgroup"
)

// ============================================================
// Per-member activity: one fetch, many windows
// ============================================================

// memberActivity is everything read for one member over a time range.
// Bucketing into weeks and totals is done in memory from this snapshot.
type memberActivity struct {
	progress          domain.TrainingProgressMap
	completedActions  []domain.BoldAction
	activeActions     []domain.BoldAction
	completedStandups []domain.Standup
	scheduledStandups []domain.Standup
}

// activityQuery selects what fetchActivity reads. Pending items (active
// bold actions, scheduled standups) only matter for week records.
type activityQuery struct {
	window         calendar.Window
	includePending bool
}

// fetchActivity issues the member's store reads concurrently.
func fetchActivity(ctx context.Context, store port.ActivityReader, memberID string, q activityQuery) (*memberActivity, error) {
	var act memberActivity
	from, to := q.window.Start, q.window.Limit()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := store.GetTrainingProgress(gCtx, memberID)
		if err != nil {
			return fmt.Errorf("training progress: %w", err)
		}
		act.progress = p
		return nil
	})

	g.Go(func() error {
		ba, err := store.ListBoldActions(gCtx, memberID, domain.BoldActionQuery{
			Status: domain.BoldActionCompleted,
			Field:  "completedAt",
			From:   from,
			To:     to,
		})
		if err != nil {
			return fmt.Errorf("completed bold actions: %w", err)
		}
		act.completedActions = ba
		return nil
	})

	g.Go(func() error {
		su, err := store.ListStandups(gCtx, memberID, domain.StandupQuery{
			Status: domain.StandupCompleted,
			Field:  "completedAt",
			From:   from,
			To:     to,
		})
		if err != nil {
			return fmt.Errorf("completed standups: %w", err)
		}
		act.completedStandups = su
		return nil
	})

	if q.includePending {
		g.Go(func() error {
			ba, err := store.ListBoldActions(gCtx, memberID, domain.BoldActionQuery{
				Status: domain.BoldActionActive,
				Field:  "createdAt",
				From:   from,
				To:     to,
			})
			if err != nil {
				return fmt.Errorf("active bold actions: %w", err)
			}
			act.activeActions = ba
			return nil
		})

		g.Go(func() error {
			su, err := store.ListStandups(gCtx, memberID, domain.StandupQuery{
				Status: domain.StandupScheduled,
				Field:  "scheduledFor",
				From:   from,
				To:     to,
			})
			if err != nil {
				return fmt.Errorf("scheduled standups: %w", err)
			}
			act.scheduledStandups = su
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &act, nil
}

// weekRecord buckets the activity that falls inside w.
//
// Trainings count when both halves are done, by LastUpdated. Completed bold
// actions are bucketed by CompletedAt and active ones by CreatedAt with
// Completed=false. Standups must belong to supervisorID; completed ones are
// bucketed by CompletedAt and scheduled ones by ScheduledFor.
func (a *memberActivity) weekRecord(w calendar.Window, supervisorID string) domain.WeekRecord {
	rec := domain.NewWeekRecord(w.Start, w.End)

	for _, p := range a.progress {
		if p.Completed() && w.Contains(p.LastUpdated) {
			rec.Trainings = append(rec.Trainings, domain.Submission{Completed: true, Timestamp: p.LastUpdated})
		}
	}

	for _, b := range a.completedActions {
		if b.IsCompleted() && w.Contains(*b.CompletedAt) {
			rec.BoldActions = append(rec.BoldActions, domain.Submission{Completed: true, Timestamp: *b.CompletedAt})
		}
	}
	for _, b := range a.activeActions {
		if b.Status == domain.BoldActionActive && w.Contains(b.CreatedAt) {
			rec.BoldActions = append(rec.BoldActions, domain.Submission{Completed: false, Timestamp: b.CreatedAt})
		}
	}

	for _, s := range a.completedStandups {
		if s.SupervisorID == supervisorID && s.IsCompleted() && w.Contains(*s.CompletedAt) {
			rec.Standups = append(rec.Standups, domain.Submission{Completed: true, Timestamp: *s.CompletedAt})
		}
	}
	for _, s := range a.scheduledStandups {
		if s.SupervisorID == supervisorID && s.Status == domain.StandupScheduled && w.Contains(s.ScheduledFor) {
			rec.Standups = append(rec.Standups, domain.Submission{Completed: false, Timestamp: s.ScheduledFor})
		}
	}

	sortSubmissions(rec.Trainings)
	sortSubmissions(rec.BoldActions)
	sortSubmissions(rec.Standups)
	return rec
}

// fourWeekTotals counts completed items inside the rolling window.
// Standups are counted regardless of supervisor.
func (a *memberActivity) fourWeekTotals(w calendar.Window) domain.FourWeekTotals {
	var t domain.FourWeekTotals
	for _, p := range a.progress {
		if p.Completed() && w.Contains(p.LastUpdated) {
			t.TotalTrainings++
		}
	}
	for _, b := range a.completedActions {
		if b.IsCompleted() && w.Contains(*b.CompletedAt) {
			t.TotalBoldActions++
		}
	}
	for _, s := range a.completedStandups {
		if s.IsCompleted() && w.Contains(*s.CompletedAt) {
			t.TotalStandups++
		}
	}
	return t
}

// sortSubmissions orders by timestamp, completed first on ties, so that
// map iteration order never leaks into results.
func sortSubmissions(items []domain.Submission) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].Completed && !items[j].Completed
	})
}

// emptyWeeks returns placeholder records for every window.
func emptyWeeks(windows []calendar.Window) []domain.WeekRecord {
	out := make([]domain.WeekRecord, len(windows))
	for i, w := range windows {
		out[i] = domain.NewWeekRecord(w.Start, w.End)
	}
	return out
}

// coverWindow returns the smallest inclusive window covering extra and
// all of ws.
func coverWindow(extra calendar.Window, ws ...calendar.Window) calendar.Window {
	out := calendar.Window{Start: extra.Start, End: extra.Limit()}
	for _, w := range ws {
		if w.Start.Before(out.Start) {
			out.Start = w.Start
		}
		if l := w.Limit(); l.After(out.End) {
			out.End = l
		}
	}
	return out
}
