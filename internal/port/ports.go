// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from the document store and content API adapters.
package port

import (
	"context"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// UserReader reads user documents.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context, q domain.UserQuery) ([]domain.User, error)
}

// ActivityReader reads the per-user activity subcollections.
// A missing progress document is an empty map, not an error.
type ActivityReader interface {
	GetTrainingProgress(ctx context.Context, userID string) (domain.TrainingProgressMap, error)
	ListBoldActions(ctx context.Context, userID string, q domain.BoldActionQuery) ([]domain.BoldAction, error)
	ListStandups(ctx context.Context, userID string, q domain.StandupQuery) ([]domain.Standup, error)
}

// ProgressReader is everything the aggregator needs from the store.
type ProgressReader interface {
	UserReader
	ActivityReader
}

// UserWriter mutates user documents.
type UserWriter interface {
	UpdateUser(ctx context.Context, userID string, upd domain.UserUpdate) error
	BatchUpdateUsers(ctx context.Context, upds map[string]domain.UserUpdate) error
}

// ActivityWriter mutates the per-user activity subcollections.
// The Complete methods only write a document that is not yet completed
// and return domain.ErrConflict otherwise.
type ActivityWriter interface {
	MergeTrainingProgress(ctx context.Context, userID, trainingID string, upd domain.TrainingProgressUpdate) error
	GetBoldAction(ctx context.Context, userID, actionID string) (*domain.BoldAction, error)
	CreateBoldAction(ctx context.Context, userID string, action *domain.BoldAction) error
	CompleteBoldAction(ctx context.Context, userID, actionID string, c domain.BoldActionCompletion) error
	GetStandup(ctx context.Context, userID, standupID string) (*domain.Standup, error)
	CreateStandup(ctx context.Context, userID string, s *domain.Standup) error
	CompleteStandup(ctx context.Context, userID, standupID string, completedAt time.Time, notes string) error
}

// ActivityStore is what the activity service needs: reads for
// authorization plus the activity writes.
type ActivityStore interface {
	ProgressReader
	ActivityWriter
}

// CompanyStore reads and updates company documents.
type CompanyStore interface {
	GetCompany(ctx context.Context, name string) (*domain.Company, error)
	FindCompanyByCode(ctx context.Context, code string) (*domain.Company, error)
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	SetCompanyCode(ctx context.Context, name, code string) error
}

// DirectoryStore is what the company service needs.
type DirectoryStore interface {
	ProgressReader
	UserWriter
	CompanyStore
}

// Store is the full document store used by the BFA.
// Implemented by the Firestore and MongoDB adapters.
type Store interface {
	ProgressReader
	UserWriter
	ActivityWriter
	CompanyStore
	Ping(ctx context.Context) error
}

// ContentFetcher retrieves the training catalog from the content API.
type ContentFetcher interface {
	ListTrainings(ctx context.Context) ([]domain.Training, error)
}
