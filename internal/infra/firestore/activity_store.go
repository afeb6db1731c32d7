package firestore

import (
	"context"
	"errors"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"

	fs "cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Per-user activity subcollections
// ============================================================

func (c *Client) progressDoc(userID string) *fs.DocumentRef {
	return c.userColl(userID, collProgress).Doc(docTrainings)
}

// GetTrainingProgress reads users/{uid}/progress/trainings.
// A missing document is an empty map.
func (c *Client) GetTrainingProgress(ctx context.Context, userID string) (domain.TrainingProgressMap, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetTrainingProgress")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	progress := domain.TrainingProgressMap{}
	err := c.call(ctx, "get_training_progress", func() error {
		f, err := getData(ctx, c.progressDoc(userID))
		if err != nil {
			return err
		}
		progress = docmodel.TrainingProgress(f)
		return nil
	})
	if err != nil && !errors.Is(err, errNoDocument) {
		return nil, err
	}
	return progress, nil
}

// progressMerge builds the data and merge paths of one entry update.
// Training ids are used as single path segments, so numeric ids need
// no quoting.
func progressMerge(trainingID string, upd domain.TrainingProgressUpdate) (map[string]any, []fs.FieldPath) {
	entry := docmodel.ProgressEntryFields(upd)
	paths := make([]fs.FieldPath, 0, len(entry))
	for k := range entry {
		paths = append(paths, fs.FieldPath{trainingID, k})
	}
	return map[string]any{trainingID: entry}, paths
}

// MergeTrainingProgress merges the set flags of one training entry,
// leaving the other flag untouched.
func (c *Client) MergeTrainingProgress(ctx context.Context, userID, trainingID string, upd domain.TrainingProgressUpdate) error {
	ctx, span := tracer.Start(ctx, "Firestore.MergeTrainingProgress")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("training.id", trainingID),
	)

	data, paths := progressMerge(trainingID, upd)
	return c.call(ctx, "merge_training_progress", func() error {
		_, err := c.progressDoc(userID).Set(ctx, data, fs.Merge(paths...))
		return err
	})
}

// boldActionQuery orders newest first on the queried timestamp field.
func boldActionQuery(base fs.Query, q domain.BoldActionQuery) fs.Query {
	field := q.Field
	if field == "" {
		field = docmodel.FieldCreatedAt
	}
	if q.Status != "" {
		base = base.Where(docmodel.FieldStatus, "==", q.Status)
	}
	base = addRange(base, field, q.From, q.To).OrderBy(field, fs.Desc)
	if q.Limit > 0 {
		base = base.Limit(q.Limit)
	}
	return base
}

// ListBoldActions queries users/{uid}/boldActions.
func (c *Client) ListBoldActions(ctx context.Context, userID string, q domain.BoldActionQuery) ([]domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "Firestore.ListBoldActions")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("bold_action.status", q.Status),
	)

	var actions []domain.BoldAction
	err := c.call(ctx, "list_bold_actions", func() error {
		snaps, err := boldActionQuery(c.userColl(userID, collBoldActions).Query, q).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		actions = make([]domain.BoldAction, 0, len(snaps))
		for _, s := range snaps {
			actions = append(actions, docmodel.BoldAction(s.Ref.ID, s.Data()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// GetBoldAction fetches one bold action.
func (c *Client) GetBoldAction(ctx context.Context, userID, actionID string) (*domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", actionID))

	var action *domain.BoldAction
	err := c.call(ctx, "get_bold_action", func() error {
		f, err := getData(ctx, c.userColl(userID, collBoldActions).Doc(actionID))
		if err != nil {
			return err
		}
		a := docmodel.BoldAction(actionID, f)
		action = &a
		return nil
	})
	if errors.Is(err, errNoDocument) {
		return nil, &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

// CreateBoldAction inserts a bold action under its pre-assigned id.
func (c *Client) CreateBoldAction(ctx context.Context, userID string, action *domain.BoldAction) error {
	ctx, span := tracer.Start(ctx, "Firestore.CreateBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", action.ID))

	return c.call(ctx, "create_bold_action", func() error {
		_, err := c.userColl(userID, collBoldActions).Doc(action.ID).Create(ctx, docmodel.BoldActionFields(action))
		return err
	})
}

// CompleteBoldAction writes the completion fields of an active action.
func (c *Client) CompleteBoldAction(ctx context.Context, userID, actionID string, comp domain.BoldActionCompletion) error {
	ctx, span := tracer.Start(ctx, "Firestore.CompleteBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", actionID))

	err := c.call(ctx, "complete_bold_action", func() error {
		return c.completeOpen(ctx, c.userColl(userID, collBoldActions).Doc(actionID),
			domain.BoldActionCompleted, docmodel.BoldActionCompletionFields(comp))
	})
	switch {
	case errors.Is(err, errNoDocument):
		return &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	case errors.Is(err, errAlreadyCompleted):
		return &domain.ErrConflict{Message: "bold action already completed"}
	}
	return err
}

// standupQuery orders oldest first on the queried timestamp field.
func standupQuery(base fs.Query, q domain.StandupQuery) fs.Query {
	field := q.Field
	if field == "" {
		field = docmodel.FieldScheduledFor
	}
	if q.SupervisorID != "" {
		base = base.Where(docmodel.FieldSupervisorID, "==", q.SupervisorID)
	}
	if q.Status != "" {
		base = base.Where(docmodel.FieldStatus, "==", q.Status)
	}
	return addRange(base, field, q.From, q.To).OrderBy(field, fs.Asc)
}

// ListStandups queries users/{uid}/standups.
func (c *Client) ListStandups(ctx context.Context, userID string, q domain.StandupQuery) ([]domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "Firestore.ListStandups")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("supervisor.id", q.SupervisorID),
	)

	var standups []domain.Standup
	err := c.call(ctx, "list_standups", func() error {
		snaps, err := standupQuery(c.userColl(userID, collStandups).Query, q).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		standups = make([]domain.Standup, 0, len(snaps))
		for _, s := range snaps {
			standups = append(standups, docmodel.Standup(userID, s.Ref.ID, s.Data()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return standups, nil
}

// GetStandup fetches one standup of a member.
func (c *Client) GetStandup(ctx context.Context, userID, standupID string) (*domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", standupID))

	var standup *domain.Standup
	err := c.call(ctx, "get_standup", func() error {
		f, err := getData(ctx, c.userColl(userID, collStandups).Doc(standupID))
		if err != nil {
			return err
		}
		s := docmodel.Standup(userID, standupID, f)
		standup = &s
		return nil
	})
	if errors.Is(err, errNoDocument) {
		return nil, &domain.ErrNotFound{Resource: "standup", ID: standupID}
	}
	if err != nil {
		return nil, err
	}
	return standup, nil
}

// CreateStandup inserts a standup under the member.
func (c *Client) CreateStandup(ctx context.Context, userID string, s *domain.Standup) error {
	ctx, span := tracer.Start(ctx, "Firestore.CreateStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", s.ID))

	return c.call(ctx, "create_standup", func() error {
		_, err := c.userColl(userID, collStandups).Doc(s.ID).Create(ctx, docmodel.StandupFields(s))
		return err
	})
}

// CompleteStandup marks a scheduled standup as held.
func (c *Client) CompleteStandup(ctx context.Context, userID, standupID string, completedAt time.Time, notes string) error {
	ctx, span := tracer.Start(ctx, "Firestore.CompleteStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", standupID))

	err := c.call(ctx, "complete_standup", func() error {
		return c.completeOpen(ctx, c.userColl(userID, collStandups).Doc(standupID),
			domain.StandupCompleted, docmodel.StandupCompletionFields(completedAt, notes))
	})
	switch {
	case errors.Is(err, errNoDocument):
		return &domain.ErrNotFound{Resource: "standup", ID: standupID}
	case errors.Is(err, errAlreadyCompleted):
		return &domain.ErrConflict{Message: "standup already completed"}
	}
	return err
}
