// Package mongostore is the MongoDB backend of the document store.
// Collections mirror the Firestore layout with subcollections flattened:
// boldActions and standups carry a userId field, and progress documents
// are keyed by user id with the training map under "trainings".
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("mongostore")

const serviceName = "mongo"

const (
	collUsers       = "users"
	collCompanies   = "companies"
	collProgress    = "progress"
	collBoldActions = "boldActions"
	collStandups    = "standups"

	fieldID       = "_id"
	fieldUserID   = "userId"
	fieldTraining = "trainings"
)

var _ port.Store = (*Store)(nil)

// Store implements port.Store on a MongoDB database.
type Store struct {
	db     *mongo.Database
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// OpenConnection connects to uri and verifies the server answers.
func OpenConnection(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(database), nil
}

// New wraps an open database.
func New(db *mongo.Database, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Store {
	return &Store{db: db, cb: cb, cfg: cfg, logger: logger}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Ping checks the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.Ping")
	defer span.End()

	return s.call(ctx, "ping", func() error {
		return s.db.Client().Ping(ctx, nil)
	})
}

// call runs fn through the breaker and retry policy. Missing documents
// and duplicate keys are not retried.
func (s *Store) call(ctx context.Context, op string, fn func() error) error {
	err := resilience.Call(ctx, s.cb, s.cfg, serviceName, func() error {
		err := fn()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, errAlreadyCompleted):
			return resilience.Permanent(err)
		case mongo.IsDuplicateKeyError(err):
			return resilience.Permanent(&domain.ErrConflict{Message: "document already exists"})
		}
		return err
	})
	if err == nil {
		return nil
	}

	var (
		open     *domain.ErrCircuitOpen
		conflict *domain.ErrConflict
	)
	switch {
	case errors.As(err, &open), errors.As(err, &conflict),
		errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, errAlreadyCompleted),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: serviceName + "." + op}
	}

	s.logger.Warn("mongo: operation failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}

// findOne decodes the first match of filter into plain fields.
func (s *Store) findOne(ctx context.Context, coll string, filter bson.M) (map[string]any, error) {
	var raw bson.M
	if err := s.db.Collection(coll).FindOne(ctx, filter).Decode(&raw); err != nil {
		return nil, err
	}
	return normalizeDoc(raw), nil
}

// findAll decodes every match of filter into plain fields.
func (s *Store) findAll(ctx context.Context, coll string, filter bson.M, opts *options.FindOptions) ([]map[string]any, error) {
	cursor, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizeDoc(r))
	}
	return out, nil
}

// updateExisting applies $set to the document matching filter and
// reports mongo.ErrNoDocuments when nothing matched.
func (s *Store) updateExisting(ctx context.Context, coll string, filter bson.M, set bson.M) error {
	res, err := s.db.Collection(coll).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// errAlreadyCompleted reports a completion write that matched a document
// already in the completed state.
var errAlreadyCompleted = errors.New("mongo: document already completed")

// completionFilter matches the document only while it is not completed.
// Documents without a status field count as open.
func completionFilter(userID, id, completed string) bson.M {
	return bson.M{
		fieldID:              id,
		fieldUserID:          userID,
		docmodel.FieldStatus: bson.M{"$ne": completed},
	}
}

// completeOpen sets the completion fields in one conditional update, so
// concurrent completions of the same document cannot both succeed.
func (s *Store) completeOpen(ctx context.Context, coll, userID, id, completed string, set bson.M) error {
	res, err := s.db.Collection(coll).UpdateOne(ctx, completionFilter(userID, id, completed), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{fieldID: id, fieldUserID: userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return errAlreadyCompleted
}

// normalizeDoc converts driver container types to the plain maps,
// slices and times the document model expects.
func normalizeDoc(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		return normalizeDoc(t)
	case map[string]any:
		return normalizeDoc(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, normalize(item))
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	}
	return v
}

// docID reads the _id field as a string.
func docID(f map[string]any) string {
	id, _ := f[fieldID].(string)
	return id
}

// timeRange builds an inclusive range filter; zero times are open ends.
func timeRange(from, to time.Time) bson.M {
	r := bson.M{}
	if !from.IsZero() {
		r["$gte"] = from.UTC()
	}
	if !to.IsZero() {
		r["$lte"] = to.UTC()
	}
	return r
}
