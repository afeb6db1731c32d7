package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

// GetTrainingProgress reads the progress document of a user.
// A missing document is an empty map.
func (s *Store) GetTrainingProgress(ctx context.Context, userID string) (domain.TrainingProgressMap, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetTrainingProgress")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	progress := domain.TrainingProgressMap{}
	err := s.call(ctx, "get_progress", func() error {
		f, err := s.findOne(ctx, collProgress, bson.M{fieldID: userID})
		if err != nil {
			return err
		}
		if trainings, ok := f[fieldTraining].(map[string]any); ok {
			progress = docmodel.TrainingProgress(trainings)
		}
		return nil
	})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return progress, nil
}

// MergeTrainingProgress upserts the set flags of one training entry.
func (s *Store) MergeTrainingProgress(ctx context.Context, userID, trainingID string, upd domain.TrainingProgressUpdate) error {
	ctx, span := tracer.Start(ctx, "Mongo.MergeTrainingProgress")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("training.id", trainingID),
	)

	set := bson.M{}
	for k, v := range docmodel.ProgressEntryFields(upd) {
		set[fieldTraining+"."+trainingID+"."+k] = v
	}

	return s.call(ctx, "merge_progress", func() error {
		_, err := s.db.Collection(collProgress).UpdateOne(ctx,
			bson.M{fieldID: userID},
			bson.M{"$set": set},
			options.Update().SetUpsert(true),
		)
		return err
	})
}

// boldActionFilter translates a BoldActionQuery for one user.
func boldActionFilter(userID string, q domain.BoldActionQuery) (bson.M, string) {
	field := q.Field
	if field == "" {
		field = docmodel.FieldCreatedAt
	}
	filter := bson.M{fieldUserID: userID}
	if q.Status != "" {
		filter[docmodel.FieldStatus] = q.Status
	}
	if r := timeRange(q.From, q.To); len(r) > 0 {
		filter[field] = r
	}
	return filter, field
}

// ListBoldActions returns a user's bold actions, newest first.
func (s *Store) ListBoldActions(ctx context.Context, userID string, q domain.BoldActionQuery) ([]domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListBoldActions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	filter, field := boldActionFilter(userID, q)
	opts := options.Find().SetSort(bson.D{{Key: field, Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	var actions []domain.BoldAction
	err := s.call(ctx, "list_bold_actions", func() error {
		docs, err := s.findAll(ctx, collBoldActions, filter, opts)
		if err != nil {
			return err
		}
		actions = make([]domain.BoldAction, 0, len(docs))
		for _, f := range docs {
			actions = append(actions, docmodel.BoldAction(docID(f), f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// GetBoldAction fetches one bold action of a user.
func (s *Store) GetBoldAction(ctx context.Context, userID, actionID string) (*domain.BoldAction, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", actionID))

	var action *domain.BoldAction
	err := s.call(ctx, "get_bold_action", func() error {
		f, err := s.findOne(ctx, collBoldActions, bson.M{fieldID: actionID, fieldUserID: userID})
		if err != nil {
			return err
		}
		a := docmodel.BoldAction(actionID, f)
		action = &a
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

// CreateBoldAction inserts a bold action under its pre-assigned id.
func (s *Store) CreateBoldAction(ctx context.Context, userID string, action *domain.BoldAction) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", action.ID))

	doc := bson.M(docmodel.BoldActionFields(action))
	doc[fieldID] = action.ID
	doc[fieldUserID] = userID

	return s.call(ctx, "create_bold_action", func() error {
		_, err := s.db.Collection(collBoldActions).InsertOne(ctx, doc)
		return err
	})
}

// CompleteBoldAction writes the completion fields of an existing action.
func (s *Store) CompleteBoldAction(ctx context.Context, userID, actionID string, comp domain.BoldActionCompletion) error {
	ctx, span := tracer.Start(ctx, "Mongo.CompleteBoldAction")
	defer span.End()
	span.SetAttributes(attribute.String("bold_action.id", actionID))

	err := s.call(ctx, "complete_bold_action", func() error {
		return s.completeOpen(ctx, collBoldActions, userID, actionID,
			domain.BoldActionCompleted,
			bson.M(docmodel.BoldActionCompletionFields(comp)),
		)
	})
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	case errors.Is(err, errAlreadyCompleted):
		return &domain.ErrConflict{Message: "bold action already completed"}
	}
	return err
}

// standupFilter translates a StandupQuery for one member.
func standupFilter(userID string, q domain.StandupQuery) (bson.M, string) {
	field := q.Field
	if field == "" {
		field = docmodel.FieldScheduledFor
	}
	filter := bson.M{fieldUserID: userID}
	if q.SupervisorID != "" {
		filter[docmodel.FieldSupervisorID] = q.SupervisorID
	}
	if q.Status != "" {
		filter[docmodel.FieldStatus] = q.Status
	}
	if r := timeRange(q.From, q.To); len(r) > 0 {
		filter[field] = r
	}
	return filter, field
}

// ListStandups returns a member's standups, oldest first.
func (s *Store) ListStandups(ctx context.Context, userID string, q domain.StandupQuery) ([]domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListStandups")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	filter, field := standupFilter(userID, q)
	opts := options.Find().SetSort(bson.D{{Key: field, Value: 1}})

	var standups []domain.Standup
	err := s.call(ctx, "list_standups", func() error {
		docs, err := s.findAll(ctx, collStandups, filter, opts)
		if err != nil {
			return err
		}
		standups = make([]domain.Standup, 0, len(docs))
		for _, f := range docs {
			standups = append(standups, docmodel.Standup(userID, docID(f), f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return standups, nil
}

// GetStandup fetches one standup of a member.
func (s *Store) GetStandup(ctx context.Context, userID, standupID string) (*domain.Standup, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", standupID))

	var standup *domain.Standup
	err := s.call(ctx, "get_standup", func() error {
		f, err := s.findOne(ctx, collStandups, bson.M{fieldID: standupID, fieldUserID: userID})
		if err != nil {
			return err
		}
		st := docmodel.Standup(userID, standupID, f)
		standup = &st
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ErrNotFound{Resource: "standup", ID: standupID}
	}
	if err != nil {
		return nil, err
	}
	return standup, nil
}

// CreateStandup inserts a standup for a member.
func (s *Store) CreateStandup(ctx context.Context, userID string, st *domain.Standup) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", st.ID))

	doc := bson.M(docmodel.StandupFields(st))
	doc[fieldID] = st.ID
	doc[fieldUserID] = userID

	return s.call(ctx, "create_standup", func() error {
		_, err := s.db.Collection(collStandups).InsertOne(ctx, doc)
		return err
	})
}

// CompleteStandup marks an existing standup as held.
func (s *Store) CompleteStandup(ctx context.Context, userID, standupID string, completedAt time.Time, notes string) error {
	ctx, span := tracer.Start(ctx, "Mongo.CompleteStandup")
	defer span.End()
	span.SetAttributes(attribute.String("standup.id", standupID))

	err := s.call(ctx, "complete_standup", func() error {
		return s.completeOpen(ctx, collStandups, userID, standupID,
			domain.StandupCompleted,
			bson.M(docmodel.StandupCompletionFields(completedAt, notes)),
		)
	})
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &domain.ErrNotFound{Resource: "standup", ID: standupID}
	case errors.Is(err, errAlreadyCompleted):
		return &domain.ErrConflict{Message: "standup already completed"}
	}
	return err
}
