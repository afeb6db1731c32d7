package mongostore

import (
	"context"
	"errors"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var user *domain.User
	err := s.call(ctx, "get_user", func() error {
		f, err := s.findOne(ctx, collUsers, bson.M{fieldID: userID})
		if err != nil {
			return err
		}
		u := docmodel.User(userID, f)
		user = &u
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// userFilter translates a UserQuery into a filter document.
func userFilter(q domain.UserQuery) bson.M {
	filter := bson.M{}
	if q.CompanyName != "" {
		filter[docmodel.FieldCompanyName] = q.CompanyName
	}
	switch len(q.Roles) {
	case 0:
	case 1:
		filter[docmodel.FieldRole] = string(q.Roles[0])
	default:
		roles := make(bson.A, 0, len(q.Roles))
		for _, r := range q.Roles {
			roles = append(roles, string(r))
		}
		filter[docmodel.FieldRole] = bson.M{"$in": roles}
	}
	if q.SupervisorID != nil {
		filter[docmodel.FieldSupervisorID] = *q.SupervisorID
	}
	return filter
}

// ListUsers returns the users matching q.
func (s *Store) ListUsers(ctx context.Context, q domain.UserQuery) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListUsers")
	defer span.End()
	span.SetAttributes(attribute.String("company.name", q.CompanyName))

	var users []domain.User
	err := s.call(ctx, "list_users", func() error {
		docs, err := s.findAll(ctx, collUsers, userFilter(q), nil)
		if err != nil {
			return err
		}
		users = make([]domain.User, 0, len(docs))
		for _, f := range docs {
			users = append(users, docmodel.User(docID(f), f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser sets role and/or supervisor of an existing user.
func (s *Store) UpdateUser(ctx context.Context, userID string, upd domain.UserUpdate) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	set := bson.M(docmodel.UserUpdateFields(upd))
	if len(set) == 0 {
		return nil
	}
	err := s.call(ctx, "update_user", func() error {
		return s.updateExisting(ctx, collUsers, bson.M{fieldID: userID}, set)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return err
}

// BatchUpdateUsers applies all updates with one bulk write.
func (s *Store) BatchUpdateUsers(ctx context.Context, upds map[string]domain.UserUpdate) error {
	ctx, span := tracer.Start(ctx, "Mongo.BatchUpdateUsers")
	defer span.End()
	span.SetAttributes(attribute.Int("users.count", len(upds)))

	models := make([]mongo.WriteModel, 0, len(upds))
	for id, upd := range upds {
		set := docmodel.UserUpdateFields(upd)
		if len(set) == 0 {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{fieldID: id}).
			SetUpdate(bson.M{"$set": bson.M(set)}))
	}
	if len(models) == 0 {
		return nil
	}

	err := s.call(ctx, "batch_update_users", func() error {
		res, err := s.db.Collection(collUsers).BulkWrite(ctx, models)
		if err != nil {
			return err
		}
		if res.MatchedCount < int64(len(models)) {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.ErrNotFound{Resource: "user", ID: "batch member"}
	}
	return err
}
