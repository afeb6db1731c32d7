package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

const reportCacheName = "weekly_metrics"

// Aggregator computes weekly and four-week progress for a company.
// It never writes to the store.
type Aggregator struct {
	store    port.ProgressReader
	cache    port.Cache[*domain.WeeklyMetrics]
	bulkhead *resilience.Bulkhead
	calendar calendar.Calendar
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAggregator creates the aggregator with all dependencies injected.
// The bulkhead is shared by every report so member fetches stay bounded
// across concurrent requests.
func NewAggregator(
	store port.ProgressReader,
	cache port.Cache[*domain.WeeklyMetrics],
	bulkhead *resilience.Bulkhead,
	cal calendar.Calendar,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		store:    store,
		cache:    cache,
		bulkhead: bulkhead,
		calendar: cal,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Company report
// ============================================================

// ComputeCompanyWeeklyMetrics builds the executive report for the
// session's company. A cached report for the same week is returned unless
// forceRefresh is set; a fresh report is always written back.
func (a *Aggregator) ComputeCompanyWeeklyMetrics(ctx context.Context, sess domain.Session, now time.Time, forceRefresh bool) (*domain.WeeklyMetrics, error) {
	if sess.CompanyName == "" {
		return nil, &domain.ErrValidation{Field: "companyName", Message: "session has no company"}
	}
	if sess.Role != domain.RoleExecutive {
		return nil, &domain.ErrForbidden{Action: "view company progress"}
	}

	ctx, span := tracer.Start(ctx, "Aggregator.ComputeCompanyWeeklyMetrics")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.name", sess.CompanyName),
		attribute.Bool("cache.bypass", forceRefresh),
	)

	windows := a.calendar.Weeks(now, domain.WeeksInReport)
	key := reportCacheKey(sess.CompanyName, windows[0].Start)

	if !forceRefresh {
		if cached, ok := a.cache.Get(key); ok {
			a.metrics.IncrCacheHit(reportCacheName)
			return cached, nil
		}
		a.metrics.IncrCacheMiss(reportCacheName)
	}

	start := time.Now()
	report, err := a.buildReport(ctx, sess.CompanyName, now, windows)
	a.metrics.RecordDuration("company_report", time.Since(start))
	if err != nil {
		a.metrics.IncrReport("error")
		a.logger.Error("company report failed",
			zap.String("company", sess.CompanyName),
			zap.Error(err),
		)
		return nil, err
	}
	a.metrics.IncrReport("success")

	a.cache.Set(key, report)
	return report, nil
}

func reportCacheKey(company string, weekStart time.Time) string {
	return fmt.Sprintf("%s:%s:%s", reportCacheName, company, weekStart.Format(time.RFC3339))
}

// buildReport walks supervisors in order and fans out over each team.
func (a *Aggregator) buildReport(ctx context.Context, company string, now time.Time, windows []calendar.Window) (*domain.WeeklyMetrics, error) {
	supervisors, err := a.store.ListUsers(ctx, domain.UserQuery{
		CompanyName: company,
		Roles:       []domain.Role{domain.RoleSupervisor},
	})
	if err != nil {
		a.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	sortUsers(supervisors)

	rolling := a.calendar.RollingWindow(now, domain.WeeksInReport)
	report := &domain.WeeklyMetrics{
		CompanyName: company,
		WeekStart:   windows[0].Start,
		GeneratedAt: now,
		Teams:       make([]domain.TeamReport, 0, len(supervisors)),
	}

	for _, sup := range supervisors {
		team, err := a.buildTeam(ctx, company, sup, windows, rolling)
		if err != nil {
			return nil, err
		}
		report.Teams = append(report.Teams, team)
		report.Weekly = report.Weekly.Add(team.Weekly)
		report.FourWeek = report.FourWeek.Add(team.FourWeek)
	}

	return report, nil
}

// buildTeam computes one supervisor's team. Member failures are isolated;
// only a failure to list the team or a cancelled context is returned.
func (a *Aggregator) buildTeam(ctx context.Context, company string, sup domain.User, windows []calendar.Window, rolling calendar.Window) (domain.TeamReport, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.buildTeam")
	defer span.End()
	span.SetAttributes(attribute.String("supervisor.id", sup.ID))

	supID := sup.ID
	members, err := a.store.ListUsers(ctx, domain.UserQuery{
		CompanyName:  company,
		Roles:        []domain.Role{domain.RoleTeamMember},
		SupervisorID: &supID,
	})
	if err != nil {
		a.metrics.IncrExternalError("store")
		return domain.TeamReport{}, fmt.Errorf("list team of %s: %w", sup.ID, err)
	}
	sortUsers(members)

	reports := make([]domain.MemberReport, len(members))
	g, gCtx := errgroup.WithContext(ctx)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			if err := a.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer a.bulkhead.Release()

			r, err := a.memberReport(gCtx, m, sup.ID, windows, rolling)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.TeamReport{}, err
	}

	return summarizeTeam(sup, reports), nil
}

// memberReport fetches and buckets one member. Store failures degrade to
// an empty, flagged report; only context errors are returned.
func (a *Aggregator) memberReport(ctx context.Context, m domain.User, supervisorID string, windows []calendar.Window, rolling calendar.Window) (domain.MemberReport, error) {
	report := domain.MemberReport{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Role:         m.Role,
		SupervisorID: m.SupervisorID,
	}

	act, err := fetchActivity(ctx, a.store, m.ID, activityQuery{
		window:         coverWindow(rolling, windows...),
		includePending: true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		a.logger.Warn("member activity fetch failed, using empty weeks",
			zap.String("member_id", m.ID),
			zap.String("supervisor_id", supervisorID),
			zap.Error(err),
		)
		a.metrics.IncrMemberFetchFailure()
		report.Weeks = emptyWeeks(windows)
		report.WeeklyProgress = report.Weeks[0]
		report.FetchFailed = true
		return report, nil
	}

	report.Weeks = make([]domain.WeekRecord, len(windows))
	for i, w := range windows {
		report.Weeks[i] = act.weekRecord(w, supervisorID)
	}
	report.WeeklyProgress = report.Weeks[0]
	report.FourWeekProgress = act.fourWeekTotals(rolling)
	return report, nil
}

// summarizeTeam derives the team ratios. The weekly ratio counts members
// with at least one completion in the current week; the four-week ratio
// sums member totals over teamSize*4.
func summarizeTeam(sup domain.User, members []domain.MemberReport) domain.TeamReport {
	size := len(members)
	var (
		weekTrainings, weekActions, weekStandups int
		fourTrainings, fourActions, fourStandups int
	)
	for _, m := range members {
		if m.WeeklyProgress.HasTraining() {
			weekTrainings++
		}
		if m.WeeklyProgress.HasBoldAction() {
			weekActions++
		}
		if m.WeeklyProgress.HasStandup() {
			weekStandups++
		}
		fourTrainings += m.FourWeekProgress.TotalTrainings
		fourActions += m.FourWeekProgress.TotalBoldActions
		fourStandups += m.FourWeekProgress.TotalStandups
	}

	fourTotal := size * domain.WeeksInReport
	return domain.TeamReport{
		SupervisorID:   sup.ID,
		SupervisorName: sup.FullName(),
		TeamSize:       size,
		Members:        members,
		Weekly: domain.CategoryTotals{
			Trainings:   domain.NewRatio(weekTrainings, size),
			BoldActions: domain.NewRatio(weekActions, size),
			Standups:    domain.NewRatio(weekStandups, size),
		},
		FourWeek: domain.CategoryTotals{
			Trainings:   domain.NewRatio(fourTrainings, fourTotal),
			BoldActions: domain.NewRatio(fourActions, fourTotal),
			Standups:    domain.NewRatio(fourStandups, fourTotal),
		},
	}
}

// ============================================================
// Single member views
// ============================================================

// ComputeMemberWeekWindow returns one week of a member's activity, with
// standups scoped to supervisorID. weekIndex 0 is the current week.
func (a *Aggregator) ComputeMemberWeekWindow(ctx context.Context, memberID, supervisorID string, weekIndex int, now time.Time) (*domain.WeekRecord, error) {
	if weekIndex < 0 || weekIndex >= domain.WeeksInReport {
		return nil, &domain.ErrValidation{
			Field:   "weekIndex",
			Message: fmt.Sprintf("must be between 0 and %d", domain.WeeksInReport-1),
		}
	}

	ctx, span := tracer.Start(ctx, "Aggregator.ComputeMemberWeekWindow")
	defer span.End()
	span.SetAttributes(
		attribute.String("member.id", memberID),
		attribute.Int("week.index", weekIndex),
	)

	w := a.calendar.Week(now, weekIndex)
	act, err := fetchActivity(ctx, a.store, memberID, activityQuery{window: w, includePending: true})
	if err != nil {
		return nil, fmt.Errorf("member %s activity: %w", memberID, err)
	}
	rec := act.weekRecord(w, supervisorID)
	return &rec, nil
}

// ComputeMemberFourWeekTotals counts a member's completions from the start
// of the week three weeks ago up to now.
func (a *Aggregator) ComputeMemberFourWeekTotals(ctx context.Context, memberID string, now time.Time) (domain.FourWeekTotals, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.ComputeMemberFourWeekTotals")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", memberID))

	rolling := a.calendar.RollingWindow(now, domain.WeeksInReport)
	act, err := fetchActivity(ctx, a.store, memberID, activityQuery{window: rolling})
	if err != nil {
		return domain.FourWeekTotals{}, fmt.Errorf("member %s activity: %w", memberID, err)
	}
	return act.fourWeekTotals(rolling), nil
}

// MemberWeek is ComputeMemberWeekWindow for an authenticated caller.
// An empty supervisorID defaults to the member's current supervisor.
func (a *Aggregator) MemberWeek(ctx context.Context, sess domain.Session, memberID, supervisorID string, weekIndex int, now time.Time) (*domain.WeekRecord, error) {
	member, err := a.authorizeMemberRead(ctx, sess, memberID)
	if err != nil {
		return nil, err
	}
	if supervisorID == "" {
		supervisorID = member.SupervisorID
	}
	return a.ComputeMemberWeekWindow(ctx, memberID, supervisorID, weekIndex, now)
}

// MemberFourWeek is ComputeMemberFourWeekTotals for an authenticated caller.
func (a *Aggregator) MemberFourWeek(ctx context.Context, sess domain.Session, memberID string, now time.Time) (domain.FourWeekTotals, error) {
	if _, err := a.authorizeMemberRead(ctx, sess, memberID); err != nil {
		return domain.FourWeekTotals{}, err
	}
	return a.ComputeMemberFourWeekTotals(ctx, memberID, now)
}

// authorizeMemberRead allows the member, their supervisor and executives
// of the same company.
func (a *Aggregator) authorizeMemberRead(ctx context.Context, sess domain.Session, memberID string) (*domain.User, error) {
	member, err := a.store.GetUser(ctx, memberID)
	if err != nil {
		return nil, err
	}
	switch {
	case member.ID == sess.UserID:
	case member.CompanyName != sess.CompanyName:
		return nil, &domain.ErrForbidden{Action: "view progress of another company's member"}
	case sess.Role == domain.RoleExecutive:
	case member.SupervisorID == sess.UserID:
	default:
		return nil, &domain.ErrForbidden{Action: "view progress of a member outside your team"}
	}
	return member, nil
}

// sortUsers orders users by name, then id, for stable reports.
func sortUsers(users []domain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		ni, nj := users[i].FullName(), users[j].FullName()
		if ni != nj {
			return ni < nj
		}
		return users[i].ID < users[j].ID
	})
}
