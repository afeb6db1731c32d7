// Package memstore is an in-process document store for local runs and
// tests. It follows the query semantics of the Firestore adapter: bold
// actions newest first, standups oldest first, on the queried field.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"
)

var _ port.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one lock.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	companies map[string]domain.Company
	progress  map[string]domain.TrainingProgressMap
	actions   map[string]map[string]domain.BoldAction
	standups  map[string]map[string]domain.Standup
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     map[string]domain.User{},
		companies: map[string]domain.Company{},
		progress:  map[string]domain.TrainingProgressMap{},
		actions:   map[string]map[string]domain.BoldAction{},
		standups:  map[string]map[string]domain.Standup{},
	}
}

// ============================================================
// Seeding
// ============================================================

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutCompany inserts or replaces a company.
func (s *Store) PutCompany(c domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.Name] = c
}

// PutProgress replaces one entry of a user's progress map.
func (s *Store) PutProgress(userID, trainingID string, p domain.TrainingProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress[userID] == nil {
		s.progress[userID] = domain.TrainingProgressMap{}
	}
	s.progress[userID][trainingID] = p
}

// PutBoldAction inserts or replaces a bold action.
func (s *Store) PutBoldAction(userID string, b domain.BoldAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putBoldAction(userID, b)
}

// PutStandup inserts or replaces a standup under the member.
func (s *Store) PutStandup(userID string, st domain.Standup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putStandup(userID, st)
}

func (s *Store) putBoldAction(userID string, b domain.BoldAction) {
	if s.actions[userID] == nil {
		s.actions[userID] = map[string]domain.BoldAction{}
	}
	s.actions[userID][b.ID] = b
}

func (s *Store) putStandup(userID string, st domain.Standup) {
	if s.standups[userID] == nil {
		s.standups[userID] = map[string]domain.Standup{}
	}
	st.MemberID = userID
	s.standups[userID][st.ID] = st
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ============================================================
// Users
// ============================================================

func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context, q domain.UserQuery) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.User{}
	for _, u := range s.users {
		if q.CompanyName != "" && u.CompanyName != q.CompanyName {
			continue
		}
		if len(q.Roles) > 0 && !hasRole(q.Roles, u.Role) {
			continue
		}
		if q.SupervisorID != nil && u.SupervisorID != *q.SupervisorID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasRole(roles []domain.Role, r domain.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func (s *Store) UpdateUser(_ context.Context, userID string, upd domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	applyUpdate(&u, upd)
	s.users[userID] = u
	return nil
}

// BatchUpdateUsers applies every update or none.
func (s *Store) BatchUpdateUsers(_ context.Context, upds map[string]domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range upds {
		if _, ok := s.users[id]; !ok {
			return &domain.ErrNotFound{Resource: "user", ID: id}
		}
	}
	for id, upd := range upds {
		u := s.users[id]
		applyUpdate(&u, upd)
		s.users[id] = u
	}
	return nil
}

func applyUpdate(u *domain.User, upd domain.UserUpdate) {
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.SupervisorID != nil {
		u.SupervisorID = *upd.SupervisorID
	}
}

// ============================================================
// Training progress
// ============================================================

func (s *Store) GetTrainingProgress(_ context.Context, userID string) (domain.TrainingProgressMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.TrainingProgressMap{}
	for k, v := range s.progress[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) MergeTrainingProgress(_ context.Context, userID, trainingID string, upd domain.TrainingProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress[userID] == nil {
		s.progress[userID] = domain.TrainingProgressMap{}
	}
	p := s.progress[userID][trainingID]
	if upd.VideoCompleted != nil {
		p.VideoCompleted = *upd.VideoCompleted
	}
	if upd.WorksheetCompleted != nil {
		p.WorksheetCompleted = *upd.WorksheetCompleted
	}
	p.LastUpdated = upd.LastUpdated
	s.progress[userID][trainingID] = p
	return nil
}

// ============================================================
// Bold Actions
// ============================================================

func (s *Store) ListBoldActions(_ context.Context, userID string, q domain.BoldActionQuery) ([]domain.BoldAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCompletion := q.Field == "completedAt"
	stamp := func(b domain.BoldAction) *time.Time {
		if byCompletion {
			return b.CompletedAt
		}
		return &b.CreatedAt
	}

	out := []domain.BoldAction{}
	for _, b := range s.actions[userID] {
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		ts := stamp(b)
		if ts == nil || !inRange(*ts, q.From, q.To) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := stamp(out[i]), stamp(out[j])
		if !ti.Equal(*tj) {
			return ti.After(*tj)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) GetBoldAction(_ context.Context, userID, actionID string) (*domain.BoldAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.actions[userID][actionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	}
	return &b, nil
}

func (s *Store) CreateBoldAction(_ context.Context, userID string, action *domain.BoldAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[userID][action.ID]; ok {
		return &domain.ErrConflict{Message: "bold action already exists: " + action.ID}
	}
	s.putBoldAction(userID, *action)
	return nil
}

func (s *Store) CompleteBoldAction(_ context.Context, userID, actionID string, c domain.BoldActionCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.actions[userID][actionID]
	if !ok {
		return &domain.ErrNotFound{Resource: "bold action", ID: actionID}
	}
	if b.Status == domain.BoldActionCompleted {
		return &domain.ErrConflict{Message: "bold action already completed"}
	}
	at := c.CompletedAt
	b.Status = domain.BoldActionCompleted
	b.ActualTimeframe = c.ActualTimeframe
	b.ReflectionNotes = c.ReflectionNotes
	b.CompletedAt = &at
	s.actions[userID][actionID] = b
	return nil
}

// ============================================================
// Standups
// ============================================================

func (s *Store) ListStandups(_ context.Context, userID string, q domain.StandupQuery) ([]domain.Standup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCompletion := q.Field == "completedAt"
	stamp := func(st domain.Standup) *time.Time {
		if byCompletion {
			return st.CompletedAt
		}
		return &st.ScheduledFor
	}

	out := []domain.Standup{}
	for _, st := range s.standups[userID] {
		if q.SupervisorID != "" && st.SupervisorID != q.SupervisorID {
			continue
		}
		if q.Status != "" && st.Status != q.Status {
			continue
		}
		ts := stamp(st)
		if ts == nil || !inRange(*ts, q.From, q.To) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := stamp(out[i]), stamp(out[j])
		if !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetStandup(_ context.Context, userID, standupID string) (*domain.Standup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.standups[userID][standupID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "standup", ID: standupID}
	}
	return &st, nil
}

func (s *Store) CreateStandup(_ context.Context, userID string, st *domain.Standup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.standups[userID][st.ID]; ok {
		return &domain.ErrConflict{Message: "standup already exists: " + st.ID}
	}
	s.putStandup(userID, *st)
	return nil
}

func (s *Store) CompleteStandup(_ context.Context, userID, standupID string, completedAt time.Time, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.standups[userID][standupID]
	if !ok {
		return &domain.ErrNotFound{Resource: "standup", ID: standupID}
	}
	if st.Status == domain.StandupCompleted {
		return &domain.ErrConflict{Message: "standup already completed"}
	}
	st.Status = domain.StandupCompleted
	st.CompletedAt = &completedAt
	st.Notes = notes
	s.standups[userID][standupID] = st
	return nil
}

// ============================================================
// Companies
// ============================================================

func (s *Store) GetCompany(_ context.Context, name string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[name]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "company", ID: name}
	}
	return &c, nil
}

func (s *Store) FindCompanyByCode(_ context.Context, code string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "company code", ID: code}
}

func (s *Store) ListCompanies(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetCompanyCode(_ context.Context, name, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[name]
	if !ok {
		return &domain.ErrNotFound{Resource: "company", ID: name}
	}
	c.Code = code
	s.companies[name] = c
	return nil
}

// inRange reports whether t lies in [from, to]; zero bounds are open.
func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
