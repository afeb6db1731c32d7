package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/memstore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"
)

// --- Store with failure injection ---

var _ port.Store = (*fakeStore)(nil)

// fakeStore wraps the in-memory backend, failing activity reads for
// selected users and counting calls.
type fakeStore struct {
	*memstore.Store

	mu           sync.Mutex
	activityErr  map[string]error
	listUsersErr error
	activityHits int
	batches      []map[string]domain.UserUpdate

	// readBarrier, when set, holds GetBoldAction and GetStandup callers
	// after their read until every expected caller has read.
	readBarrier *sync.WaitGroup
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		Store:       memstore.New(),
		activityErr: map[string]error{},
	}
}

func (f *fakeStore) addUser(u domain.User) { f.PutUser(u) }

func (f *fakeStore) setProgress(userID, trainingID string, p domain.TrainingProgress) {
	f.PutProgress(userID, trainingID, p)
}

func (f *fakeStore) addAction(userID string, b domain.BoldAction) { f.PutBoldAction(userID, b) }

func (f *fakeStore) addStandup(userID string, s domain.Standup) { f.PutStandup(userID, s) }

func (f *fakeStore) user(id string) domain.User {
	u, err := f.Store.GetUser(context.Background(), id)
	if err != nil {
		return domain.User{}
	}
	return *u
}

func (f *fakeStore) progressOf(userID string) domain.TrainingProgressMap {
	p, _ := f.Store.GetTrainingProgress(context.Background(), userID)
	return p
}

func (f *fakeStore) company(name string) domain.Company {
	c, err := f.Store.GetCompany(context.Background(), name)
	if err != nil {
		return domain.Company{}
	}
	return *c
}

func (f *fakeStore) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activityHits
}

func (f *fakeStore) failure(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activityHits++
	return f.activityErr[userID]
}

func (f *fakeStore) ListUsers(ctx context.Context, q domain.UserQuery) ([]domain.User, error) {
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	return f.Store.ListUsers(ctx, q)
}

func (f *fakeStore) GetTrainingProgress(ctx context.Context, userID string) (domain.TrainingProgressMap, error) {
	if err := f.failure(userID); err != nil {
		return nil, err
	}
	return f.Store.GetTrainingProgress(ctx, userID)
}

func (f *fakeStore) ListBoldActions(ctx context.Context, userID string, q domain.BoldActionQuery) ([]domain.BoldAction, error) {
	if err := f.failure(userID); err != nil {
		return nil, err
	}
	return f.Store.ListBoldActions(ctx, userID, q)
}

func (f *fakeStore) ListStandups(ctx context.Context, userID string, q domain.StandupQuery) ([]domain.Standup, error) {
	if err := f.failure(userID); err != nil {
		return nil, err
	}
	return f.Store.ListStandups(ctx, userID, q)
}

func (f *fakeStore) GetBoldAction(ctx context.Context, userID, actionID string) (*domain.BoldAction, error) {
	ba, err := f.Store.GetBoldAction(ctx, userID, actionID)
	f.awaitReaders()
	return ba, err
}

func (f *fakeStore) GetStandup(ctx context.Context, userID, standupID string) (*domain.Standup, error) {
	st, err := f.Store.GetStandup(ctx, userID, standupID)
	f.awaitReaders()
	return st, err
}

func (f *fakeStore) awaitReaders() {
	if f.readBarrier != nil {
		f.readBarrier.Done()
		f.readBarrier.Wait()
	}
}

func (f *fakeStore) BatchUpdateUsers(ctx context.Context, upds map[string]domain.UserUpdate) error {
	if err := f.Store.BatchUpdateUsers(ctx, upds); err != nil {
		return err
	}
	f.mu.Lock()
	f.batches = append(f.batches, upds)
	f.mu.Unlock()
	return nil
}

// --- Content API ---

type fakeContent struct {
	trainings []domain.Training
	err       error
	calls     int
}

func (c *fakeContent) ListTrainings(context.Context) ([]domain.Training, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Training, len(c.trainings))
	copy(out, c.trainings)
	return out, nil
}

var errStoreDown = errors.New("store unavailable")

// --- Fixtures ---

// now is Wednesday 2026-03-11 12:00 UTC; week 0 starts Monday 2026-03-09.
var now = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func execSession(company string) domain.Session {
	return domain.Session{UserID: "exec", CompanyName: company, Role: domain.RoleExecutive}
}

func supSession(id, company string) domain.Session {
	return domain.Session{UserID: id, CompanyName: company, Role: domain.RoleSupervisor}
}

func memberSession(id, company string) domain.Session {
	return domain.Session{UserID: id, CompanyName: company, Role: domain.RoleTeamMember}
}
