package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ActivityService records trainings, bold actions and standups.
// These writes are what the aggregator later reads back.
type ActivityService struct {
	store    port.ActivityStore
	bulkhead *resilience.Bulkhead
	newID    func() string
	logger   *zap.Logger
}

// NewActivityService creates the activity service. Ids are random UUIDs.
func NewActivityService(store port.ActivityStore, bulkhead *resilience.Bulkhead, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		store:    store,
		bulkhead: bulkhead,
		newID:    uuid.NewString,
		logger:   logger,
	}
}

// ============================================================
// Training progress
// ============================================================

// MarkVideoCompleted records that the caller watched a training video.
func (s *ActivityService) MarkVideoCompleted(ctx context.Context, sess domain.Session, trainingID string, now time.Time) error {
	done := true
	return s.markTraining(ctx, sess, trainingID, domain.TrainingProgressUpdate{VideoCompleted: &done, LastUpdated: now}, "video")
}

// MarkWorksheetCompleted records that the caller submitted a worksheet.
func (s *ActivityService) MarkWorksheetCompleted(ctx context.Context, sess domain.Session, trainingID string, now time.Time) error {
	done := true
	return s.markTraining(ctx, sess, trainingID, domain.TrainingProgressUpdate{WorksheetCompleted: &done, LastUpdated: now}, "worksheet")
}

func (s *ActivityService) markTraining(ctx context.Context, sess domain.Session, trainingID string, upd domain.TrainingProgressUpdate, part string) error {
	ctx, span := tracer.Start(ctx, "ActivityService.MarkTraining")
	defer span.End()
	span.SetAttributes(
		attribute.String("training.id", trainingID),
		attribute.String("training.part", part),
	)

	if strings.TrimSpace(trainingID) == "" {
		return &domain.ErrValidation{Field: "trainingId", Message: "training id is required"}
	}

	if err := s.store.MergeTrainingProgress(ctx, sess.UserID, trainingID, upd); err != nil {
		s.logger.Error("training progress write failed",
			zap.String("user_id", sess.UserID),
			zap.String("training_id", trainingID),
			zap.String("part", part),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ============================================================
// Bold Actions
// ============================================================

// CreateBoldAction stores a new active bold action for the caller.
func (s *ActivityService) CreateBoldAction(ctx context.Context, sess domain.Session, req domain.CreateBoldActionRequest, now time.Time) (*domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.CreateBoldAction")
	defer span.End()

	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, &domain.ErrValidation{Field: "action", Message: "action is required"}
	}
	timeframe := strings.TrimSpace(req.Timeframe)
	if timeframe == "" {
		return nil, &domain.ErrValidation{Field: "timeframe", Message: "timeframe is required"}
	}

	ba := &domain.BoldAction{
		ID:         s.newID(),
		Action:     action,
		Status:     domain.BoldActionActive,
		Timeframe:  timeframe,
		TrainingID: req.TrainingID,
		CreatedAt:  now,
	}
	span.SetAttributes(attribute.String("bold_action.id", ba.ID))

	if err := s.store.CreateBoldAction(ctx, sess.UserID, ba); err != nil {
		return nil, err
	}
	s.logger.Info("bold action created",
		zap.String("user_id", sess.UserID),
		zap.String("bold_action_id", ba.ID),
	)
	return ba, nil
}

// ListBoldActions returns the caller's bold actions, newest first.
// An empty status returns all of them.
func (s *ActivityService) ListBoldActions(ctx context.Context, sess domain.Session, status string) ([]domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.ListBoldActions")
	defer span.End()

	switch status {
	case "", domain.BoldActionActive, domain.BoldActionCompleted:
	default:
		return nil, &domain.ErrValidation{Field: "status", Message: "must be active or completed"}
	}

	actions, err := s.store.ListBoldActions(ctx, sess.UserID, domain.BoldActionQuery{Status: status})
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []domain.BoldAction{}
	}
	return actions, nil
}

// CompleteBoldAction closes an active bold action with the caller's reflection.
func (s *ActivityService) CompleteBoldAction(ctx context.Context, sess domain.Session, actionID string, req domain.BoldActionCompletion, now time.Time) (*domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.CompleteBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", actionID))

	if strings.TrimSpace(req.ActualTimeframe) == "" {
		return nil, &domain.ErrValidation{Field: "actualTimeframe", Message: "actual timeframe is required"}
	}

	ba, err := s.store.GetBoldAction(ctx, sess.UserID, actionID)
	if err != nil {
		return nil, err
	}
	if ba.Status == domain.BoldActionCompleted {
		return nil, &domain.ErrConflict{Message: "bold action already completed"}
	}

	req.CompletedAt = now
	if err := s.store.CompleteBoldAction(ctx, sess.UserID, actionID, req); err != nil {
		return nil, err
	}

	ba.Status = domain.BoldActionCompleted
	ba.ActualTimeframe = req.ActualTimeframe
	ba.ReflectionNotes = req.ReflectionNotes
	ba.CompletedAt = &now
	return ba, nil
}

// ============================================================
// Standups
// ============================================================

// ScheduleStandup books a standup between the calling supervisor and one
// of their direct reports.
func (s *ActivityService) ScheduleStandup(ctx context.Context, sess domain.Session, memberID string, req domain.ScheduleStandupRequest) (*domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.ScheduleStandup")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", memberID))

	if req.ScheduledFor.IsZero() {
		return nil, &domain.ErrValidation{Field: "scheduledFor", Message: "scheduled time is required"}
	}
	if err := s.requireOwnReport(ctx, sess, memberID, "schedule standups"); err != nil {
		return nil, err
	}

	st := &domain.Standup{
		ID:           s.newID(),
		MemberID:     memberID,
		SupervisorID: sess.UserID,
		Status:       domain.StandupScheduled,
		ScheduledFor: req.ScheduledFor,
	}
	if err := s.store.CreateStandup(ctx, memberID, st); err != nil {
		return nil, err
	}
	s.logger.Info("standup scheduled",
		zap.String("supervisor_id", sess.UserID),
		zap.String("member_id", memberID),
		zap.Time("scheduled_for", st.ScheduledFor),
	)
	return st, nil
}

// CompleteStandup marks a scheduled standup as held. Only the supervisor
// who owns the standup may complete it.
func (s *ActivityService) CompleteStandup(ctx context.Context, sess domain.Session, memberID, standupID string, req domain.CompleteStandupRequest, now time.Time) (*domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.CompleteStandup")
	defer span.End()
	span.SetAttributes(
		attribute.String("member.id", memberID),
		attribute.String("standup.id", standupID),
	)

	if sess.Role != domain.RoleSupervisor {
		return nil, &domain.ErrForbidden{Action: "complete standups"}
	}

	st, err := s.store.GetStandup(ctx, memberID, standupID)
	if err != nil {
		return nil, err
	}
	if st.SupervisorID != sess.UserID {
		return nil, &domain.ErrForbidden{Action: "complete another supervisor's standup"}
	}
	if st.Status == domain.StandupCompleted {
		return nil, &domain.ErrConflict{Message: "standup already completed"}
	}

	if err := s.store.CompleteStandup(ctx, memberID, standupID, now, req.Notes); err != nil {
		return nil, err
	}
	st.Status = domain.StandupCompleted
	st.CompletedAt = &now
	st.Notes = req.Notes
	return st, nil
}

// ListUpcomingStandups returns scheduled standups at or after now, soonest
// first. Supervisors see their whole team; everyone else sees their own.
func (s *ActivityService) ListUpcomingStandups(ctx context.Context, sess domain.Session, now time.Time) ([]domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "ActivityService.ListUpcomingStandups")
	defer span.End()

	q := domain.StandupQuery{Status: domain.StandupScheduled, Field: "scheduledFor", From: now}

	if sess.Role != domain.RoleSupervisor {
		out, err := s.store.ListStandups(ctx, sess.UserID, q)
		if err != nil {
			return nil, err
		}
		sortStandups(out)
		if out == nil {
			out = []domain.Standup{}
		}
		return out, nil
	}

	supID := sess.UserID
	members, err := s.store.ListUsers(ctx, domain.UserQuery{
		CompanyName:  sess.CompanyName,
		Roles:        []domain.Role{domain.RoleTeamMember},
		SupervisorID: &supID,
	})
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}

	q.SupervisorID = sess.UserID
	var (
		mu  sync.Mutex
		out = []domain.Standup{}
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, m := range members {
		m := m
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			items, err := s.store.ListStandups(gCtx, m.ID, q)
			if err != nil {
				return fmt.Errorf("standups of %s: %w", m.ID, err)
			}
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortStandups(out)
	return out, nil
}

// requireOwnReport checks that the caller is a supervisor and memberID
// reports to them.
func (s *ActivityService) requireOwnReport(ctx context.Context, sess domain.Session, memberID, action string) error {
	if sess.Role != domain.RoleSupervisor {
		return &domain.ErrForbidden{Action: action}
	}
	member, err := s.store.GetUser(ctx, memberID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return &domain.ErrNotFound{Resource: "team member", ID: memberID}
		}
		return err
	}
	if member.CompanyName != sess.CompanyName || member.SupervisorID != sess.UserID {
		return &domain.ErrForbidden{Action: action + " for a member outside your team"}
	}
	return nil
}

func sortStandups(items []domain.Standup) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].ScheduledFor.Equal(items[j].ScheduledFor) {
			return items[i].ScheduledFor.Before(items[j].ScheduledFor)
		}
		return items[i].ID < items[j].ID
	})
}
