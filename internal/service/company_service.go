package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Company settings and invite codes
// ============================================================

const (
	minCompanyCode = 10000
	maxCompanyCode = 99999

	// unassignSupervisor is accepted as an explicit "no supervisor".
	unassignSupervisor = "none"
)

var companyCodePattern = regexp.MustCompile(`^\d{5}$`)

// TitleSource resolves training ids to titles.
type TitleSource interface {
	Titles(ctx context.Context) (map[string]string, error)
}

// CompanyService manages the people of a company.
type CompanyService struct {
	store    port.DirectoryStore
	titles   TitleSource
	bulkhead *resilience.Bulkhead
	logger   *zap.Logger
}

// NewCompanyService creates the company service.
func NewCompanyService(store port.DirectoryStore, titles TitleSource, bulkhead *resilience.Bulkhead, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		store:    store,
		titles:   titles,
		bulkhead: bulkhead,
		logger:   logger,
	}
}

// ListDirectory returns the supervisors and team members of the caller's
// company with their latest activity, filtered by search.
func (s *CompanyService) ListDirectory(ctx context.Context, sess domain.Session, search string) ([]domain.DirectoryEntry, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.ListDirectory")
	defer span.End()

	if err := requireExecutive(sess, "view the company directory"); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx, domain.UserQuery{
		CompanyName: sess.CompanyName,
		Roles:       []domain.Role{domain.RoleSupervisor, domain.RoleTeamMember},
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sortUsers(users)

	entries, err := s.entries(ctx, users, latestActivity{completedOnly: true})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return entries, nil
	}
	out := make([]domain.DirectoryEntry, 0, len(entries))
	for _, e := range entries {
		if matchesSearch(e, needle) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListTeam returns the caller's direct reports with their latest active
// bold action and most recent training.
func (s *CompanyService) ListTeam(ctx context.Context, sess domain.Session) ([]domain.DirectoryEntry, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.ListTeam")
	defer span.End()

	if sess.Role != domain.RoleSupervisor {
		return nil, &domain.ErrForbidden{Action: "view a team"}
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
	sortUsers(members)

	return s.entries(ctx, members, latestActivity{status: domain.BoldActionActive})
}

// latestActivity selects what an entry's "latest" fields show.
type latestActivity struct {
	status        string
	completedOnly bool
}

func (s *CompanyService) entries(ctx context.Context, users []domain.User, sel latestActivity) ([]domain.DirectoryEntry, error) {
	titles, err := s.titles.Titles(ctx)
	if err != nil {
		s.logger.Warn("training titles unavailable, using fallback titles", zap.Error(err))
		titles = map[string]string{}
	}

	entries := make([]domain.DirectoryEntry, len(users))
	g, gCtx := errgroup.WithContext(ctx)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			e, err := s.entry(gCtx, u, sel, titles)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *CompanyService) entry(ctx context.Context, u domain.User, sel latestActivity, titles map[string]string) (domain.DirectoryEntry, error) {
	e := domain.DirectoryEntry{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		SupervisorID: u.SupervisorID,
	}

	actions, err := s.store.ListBoldActions(ctx, u.ID, domain.BoldActionQuery{Status: sel.status, Limit: 1})
	if err != nil {
		return e, fmt.Errorf("bold actions of %s: %w", u.ID, err)
	}
	if len(actions) > 0 {
		e.LatestBoldAction = &actions[0]
	}

	progress, err := s.store.GetTrainingProgress(ctx, u.ID)
	if err != nil {
		return e, fmt.Errorf("training progress of %s: %w", u.ID, err)
	}
	if id, p, ok := latestProgress(progress, sel.completedOnly); ok {
		e.LatestTraining = &domain.LatestTraining{
			ID:          id,
			Title:       trainingTitle(titles, id),
			CompletedAt: p.LastUpdated,
		}
	}
	return e, nil
}

// latestProgress picks the entry with the newest LastUpdated, ties broken by id.
func latestProgress(progress domain.TrainingProgressMap, completedOnly bool) (string, domain.TrainingProgress, bool) {
	var (
		bestID string
		best   domain.TrainingProgress
		found  bool
	)
	for id, p := range progress {
		if completedOnly && !p.Completed() {
			continue
		}
		if !found || p.LastUpdated.After(best.LastUpdated) ||
			(p.LastUpdated.Equal(best.LastUpdated) && id < bestID) {
			bestID, best, found = id, p, true
		}
	}
	return bestID, best, found
}

func matchesSearch(e domain.DirectoryEntry, needle string) bool {
	fields := []string{e.FirstName + " " + e.LastName}
	if e.LatestBoldAction != nil {
		fields = append(fields, e.LatestBoldAction.Action)
	}
	if e.LatestTraining != nil {
		fields = append(fields, e.LatestTraining.Title)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ============================================================
// Role and supervisor changes
// ============================================================

// UpdateRole changes a user's role.
func (s *CompanyService) UpdateRole(ctx context.Context, sess domain.Session, userID string, role domain.Role) error {
	ctx, span := tracer.Start(ctx, "CompanyService.UpdateRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("role", string(role)))

	if err := requireExecutive(sess, "change roles"); err != nil {
		return err
	}
	if !role.Valid() {
		return &domain.ErrValidation{Field: "role", Message: "must be team_member, supervisor or executive"}
	}
	if _, err := s.companyUser(ctx, sess, userID); err != nil {
		return err
	}

	if err := s.store.UpdateUser(ctx, userID, domain.UserUpdate{Role: &role}); err != nil {
		return err
	}
	s.logger.Info("user role updated",
		zap.String("company", sess.CompanyName),
		zap.String("user_id", userID),
		zap.String("role", string(role)),
	)
	return nil
}

// AssignSupervisor sets or clears a user's supervisor. "none" and the
// empty string clear it.
func (s *CompanyService) AssignSupervisor(ctx context.Context, sess domain.Session, userID, supervisorID string) error {
	ctx, span := tracer.Start(ctx, "CompanyService.AssignSupervisor")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := requireExecutive(sess, "assign supervisors"); err != nil {
		return err
	}
	target, err := s.companyUser(ctx, sess, userID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleExecutive {
		return &domain.ErrValidation{Field: "supervisorId", Message: "executives cannot be assigned a supervisor"}
	}

	supID, err := s.resolveSupervisor(ctx, sess, supervisorID)
	if err != nil {
		return err
	}
	if supID == userID {
		return &domain.ErrValidation{Field: "supervisorId", Message: "a user cannot supervise themselves"}
	}

	if err := s.store.UpdateUser(ctx, userID, domain.UserUpdate{SupervisorID: &supID}); err != nil {
		return err
	}
	s.logger.Info("supervisor assigned",
		zap.String("company", sess.CompanyName),
		zap.String("user_id", userID),
		zap.String("supervisor_id", supID),
	)
	return nil
}

// BatchUpdate applies a role and/or supervisor to many users at once.
// The supervisor is ignored when the batch promotes users to supervisor
// or executive.
func (s *CompanyService) BatchUpdate(ctx context.Context, sess domain.Session, req domain.BatchUserUpdate) (int, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.BatchUpdate")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(req.UserIDs)))

	if err := requireExecutive(sess, "update users"); err != nil {
		return 0, err
	}
	if len(req.UserIDs) == 0 {
		return 0, &domain.ErrValidation{Field: "userIds", Message: "at least one user is required"}
	}
	if req.Role != "" && !req.Role.Valid() {
		return 0, &domain.ErrValidation{Field: "role", Message: "must be team_member, supervisor or executive"}
	}

	applySupervisor := req.SupervisorID != "" &&
		req.Role != domain.RoleSupervisor && req.Role != domain.RoleExecutive
	if req.Role == "" && !applySupervisor {
		return 0, &domain.ErrValidation{Field: "role", Message: "nothing to update"}
	}

	var supID string
	if applySupervisor {
		var err error
		if supID, err = s.resolveSupervisor(ctx, sess, req.SupervisorID); err != nil {
			return 0, err
		}
	}

	upds := make(map[string]domain.UserUpdate, len(req.UserIDs))
	for _, id := range req.UserIDs {
		target, err := s.companyUser(ctx, sess, id)
		if err != nil {
			return 0, err
		}
		var upd domain.UserUpdate
		if req.Role != "" {
			role := req.Role
			upd.Role = &role
		}
		if applySupervisor && target.Role != domain.RoleExecutive && id != supID {
			sup := supID
			upd.SupervisorID = &sup
		}
		if !upd.Empty() {
			upds[id] = upd
		}
	}
	if len(upds) == 0 {
		return 0, nil
	}

	if err := s.store.BatchUpdateUsers(ctx, upds); err != nil {
		return 0, err
	}
	s.logger.Info("batch user update",
		zap.String("company", sess.CompanyName),
		zap.Int("users", len(upds)),
	)
	return len(upds), nil
}

// resolveSupervisor maps the "none" sentinel to "" and otherwise checks
// that the id names a supervisor of the caller's company.
func (s *CompanyService) resolveSupervisor(ctx context.Context, sess domain.Session, supervisorID string) (string, error) {
	supervisorID = strings.TrimSpace(supervisorID)
	if supervisorID == "" || supervisorID == unassignSupervisor {
		return "", nil
	}
	sup, err := s.companyUser(ctx, sess, supervisorID)
	if err != nil {
		return "", err
	}
	if sup.Role != domain.RoleSupervisor {
		return "", &domain.ErrValidation{Field: "supervisorId", Message: "user is not a supervisor"}
	}
	return sup.ID, nil
}

// companyUser loads a user and hides users of other companies.
func (s *CompanyService) companyUser(ctx context.Context, sess domain.Session, userID string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.CompanyName != sess.CompanyName {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return u, nil
}

func requireExecutive(sess domain.Session, action string) error {
	if sess.CompanyName == "" {
		return &domain.ErrValidation{Field: "companyName", Message: "session has no company"}
	}
	if sess.Role != domain.RoleExecutive {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// ============================================================
// Invite codes
// ============================================================

// LookupByCode finds the company a new user is joining.
func (s *CompanyService) LookupByCode(ctx context.Context, code string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.LookupByCode")
	defer span.End()

	code = strings.TrimSpace(code)
	if !companyCodePattern.MatchString(code) {
		return nil, &domain.ErrValidation{Field: "code", Message: "must be 5 digits"}
	}
	return s.store.FindCompanyByCode(ctx, code)
}

// AssignMissingCodes gives every company without an invite code a unique
// random 5-digit code. It returns the codes it assigned, by company name.
func (s *CompanyService) AssignMissingCodes(ctx context.Context, rng *rand.Rand) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.AssignMissingCodes")
	defer span.End()

	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	used := make(map[string]bool, len(companies))
	var missing []string
	for _, c := range companies {
		if c.Code != "" {
			used[c.Code] = true
			continue
		}
		missing = append(missing, c.Name)
	}

	if len(used)+len(missing) > maxCompanyCode-minCompanyCode+1 {
		return nil, errors.New("not enough company codes left")
	}

	assigned := make(map[string]string, len(missing))
	for _, name := range missing {
		code := nextCompanyCode(rng, used)
		used[code] = true

		if err := s.store.SetCompanyCode(ctx, name, code); err != nil {
			s.logger.Error("company code write failed",
				zap.String("company", name),
				zap.Error(err),
			)
			return assigned, fmt.Errorf("set code for %s: %w", name, err)
		}
		assigned[name] = code
		s.logger.Info("company code assigned",
			zap.String("company", name),
			zap.String("code", code),
		)
	}
	return assigned, nil
}

func nextCompanyCode(rng *rand.Rand, used map[string]bool) string {
	for {
		code := strconv.Itoa(minCompanyCode + rng.Intn(maxCompanyCode-minCompanyCode+1))
		if !used[code] {
			return code
		}
	}
}
