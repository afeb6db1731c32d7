// Package firestore is the Firestore backend of the document store,
// built on the Cloud Firestore client. It implements port.Store.
package firestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/docmodel"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	fs "cloud.google.com/go/firestore"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("firestore")

const serviceName = "firestore"

const (
	collUsers       = "users"
	collCompanies   = "companies"
	collProgress    = "progress"
	collBoldActions = "boldActions"
	collStandups    = "standups"

	docTrainings = "trainings"
)

var (
	// errNoDocument marks a missing document. Store methods turn it into
	// domain.ErrNotFound or an empty result.
	errNoDocument = errors.New("firestore: document not found")

	// errAlreadyCompleted marks a completion of a document that is
	// already completed.
	errAlreadyCompleted = errors.New("firestore: document already completed")
)

// Options locates the database. CredentialsFile is optional; without it
// the client uses Application Default Credentials, or the emulator when
// FIRESTORE_EMULATOR_HOST is set.
type Options struct {
	ProjectID       string
	Database        string
	CredentialsFile string
}

// OpenConnection creates a Firestore client for opts.
func OpenConnection(ctx context.Context, opts Options) (*fs.Client, error) {
	db := opts.Database
	if db == "" {
		db = "(default)"
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	return fs.NewClientWithDatabase(ctx, opts.ProjectID, db, clientOpts...)
}

var _ port.Store = (*Client)(nil)

// Client wraps Firestore calls with the breaker, retries and spans.
type Client struct {
	fs     *fs.Client
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// New wraps an open Firestore client.
func New(client *fs.Client, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{fs: client, cb: cb, cfg: cfg, logger: logger}
}

// Close releases the underlying connection.
func (c *Client) Close(context.Context) error {
	return c.fs.Close()
}

// call runs fn through the breaker and retry policy and wraps transport
// failures as domain.ErrExternalService.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	err := resilience.Call(ctx, c.cb, c.cfg, serviceName, func() error {
		return classify(fn())
	})
	if err == nil {
		return nil
	}

	var (
		open     *domain.ErrCircuitOpen
		notFound *domain.ErrNotFound
		conflict *domain.ErrConflict
	)
	switch {
	case errors.As(err, &open), errors.As(err, &notFound), errors.As(err, &conflict),
		errors.Is(err, errNoDocument), errors.Is(err, errAlreadyCompleted),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded), status.Code(err) == codes.DeadlineExceeded:
		return &domain.ErrTimeout{Operation: serviceName + "." + op}
	}

	c.logger.Warn("firestore: operation failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}

// classify maps Firestore status codes onto the retry policy. Missing
// documents, existing documents and request errors are permanent;
// unavailability and contention are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound *domain.ErrNotFound
		conflict *domain.ErrConflict
	)
	if errors.As(err, &notFound) || errors.As(err, &conflict) ||
		errors.Is(err, errNoDocument) || errors.Is(err, errAlreadyCompleted) {
		return resilience.Permanent(err)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return resilience.Permanent(errNoDocument)
	case codes.AlreadyExists:
		return resilience.Permanent(&domain.ErrConflict{Message: "document already exists"})
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied,
		codes.Unauthenticated, codes.OutOfRange, codes.Unimplemented:
		return resilience.Permanent(err)
	}
	return err
}

// ============================================================
// Document helpers
// ============================================================

func (c *Client) userDoc(userID string) *fs.DocumentRef {
	return c.fs.Collection(collUsers).Doc(userID)
}

func (c *Client) userColl(userID, coll string) *fs.CollectionRef {
	return c.userDoc(userID).Collection(coll)
}

// getData reads one document. A missing document is errNoDocument.
func getData(ctx context.Context, ref *fs.DocumentRef) (docmodel.Fields, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, errNoDocument
	}
	return snap.Data(), nil
}

// updatesOf turns a field map into Update operations in key order.
func updatesOf(fields docmodel.Fields) []fs.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]fs.Update, 0, len(keys))
	for _, k := range keys {
		out = append(out, fs.Update{Path: k, Value: fields[k]})
	}
	return out
}

// completeOpen writes fields in a transaction that first checks the
// document is not yet in the completed status.
func (c *Client) completeOpen(ctx context.Context, ref *fs.DocumentRef, completed string, fields docmodel.Fields) error {
	return c.fs.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return errNoDocument
		}
		if s, _ := snap.Data()[docmodel.FieldStatus].(string); s == completed {
			return errAlreadyCompleted
		}
		return tx.Update(ref, updatesOf(fields))
	})
}

// addRange adds inclusive bounds on field; zero times are open ends.
func addRange(q fs.Query, field string, from, to time.Time) fs.Query {
	if !from.IsZero() {
		q = q.Where(field, ">=", from)
	}
	if !to.IsZero() {
		q = q.Where(field, "<=", to)
	}
	return q
}

// Ping checks that the database answers a minimal query.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Firestore.Ping")
	defer span.End()

	return c.call(ctx, "ping", func() error {
		_, err := c.fs.Collection(collUsers).Limit(1).Documents(ctx).GetAll()
		return err
	})
}
