package firestore_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/firestore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"

	fs "cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

// newEmulatorStore connects to the Firestore emulator. Each test gets its
// own user ids, so runs never see each other's documents.
func newEmulatorStore(t *testing.T) (*firestore.Client, *fs.Client) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	raw, err := firestore.OpenConnection(context.Background(), firestore.Options{ProjectID: "lf-test"})
	if err != nil {
		t.Fatalf("open emulator connection: %v", err)
	}
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	store := firestore.New(raw, resilience.NewCircuitBreaker("firestore-test", zap.NewNop()), cfg, zap.NewNop())
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store, raw
}

func seedUser(t *testing.T, raw *fs.Client, id string, fields map[string]any) {
	t.Helper()
	if _, err := raw.Collection("users").Doc(id).Set(context.Background(), fields); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestGetUser_DecodesAndReportsMissing(t *testing.T) {
	store, raw := newEmulatorStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	created := time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC)
	seedUser(t, raw, id, map[string]any{
		"firstName":   "Ana",
		"lastName":    "Souza",
		"role":        "supervisor",
		"companyName": "Acme",
		"createdAt":   created,
		"permissions": []string{"view_team"},
		"trainingProgress": map[string]any{
			"completedVideos": 2,
			"totalVideos":     5,
		},
	})

	u, err := store.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.FullName() != "Ana Souza" || u.Role != domain.RoleSupervisor || !u.CreatedAt.Equal(created) {
		t.Errorf("unexpected user %+v", u)
	}
	if u.TrainingProgress.CompletedVideos != 2 || len(u.Permissions) != 1 {
		t.Errorf("expected nested fields decoded, got %+v", u)
	}

	_, err = store.GetUser(ctx, uuid.NewString())
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMergeTrainingProgress_KeepsOtherFlag(t *testing.T) {
	store, _ := newEmulatorStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	yes := true
	at := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	if p, err := store.GetTrainingProgress(ctx, id); err != nil || len(p) != 0 {
		t.Fatalf("expected empty progress for a new user, got %v (%v)", p, err)
	}
	if err := store.MergeTrainingProgress(ctx, id, "101", domain.TrainingProgressUpdate{VideoCompleted: &yes, LastUpdated: at}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.MergeTrainingProgress(ctx, id, "101", domain.TrainingProgressUpdate{WorksheetCompleted: &yes, LastUpdated: at.Add(time.Hour)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := store.GetTrainingProgress(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p["101"].Completed() || !p["101"].LastUpdated.Equal(at.Add(time.Hour)) {
		t.Errorf("expected merged entry, got %+v", p["101"])
	}
}

func TestBoldActions_OrderAndConcurrentCompletion(t *testing.T) {
	store, _ := newEmulatorStore(t)
	ctx := context.Background()
	uid := uuid.NewString()
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"older", "newer"} {
		ba := &domain.BoldAction{ID: id, Action: id, Status: domain.BoldActionActive, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.CreateBoldAction(ctx, uid, ba); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	var conflict *domain.ErrConflict
	dup := &domain.BoldAction{ID: "older", Status: domain.BoldActionActive, CreatedAt: base}
	if err := store.CreateBoldAction(ctx, uid, dup); !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict on duplicate create, got %v", err)
	}

	latest, err := store.ListBoldActions(ctx, uid, domain.BoldActionQuery{Status: domain.BoldActionActive, Limit: 1})
	if err != nil || len(latest) != 1 || latest[0].ID != "newer" {
		t.Fatalf("expected the newest action, got %+v (%v)", latest, err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.CompleteBoldAction(ctx, uid, "older", domain.BoldActionCompletion{
				ActualTimeframe: "2 days",
				CompletedAt:     base.Add(time.Duration(i+2) * time.Hour),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.As(err, &conflict):
			t.Errorf("expected ErrConflict, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one completion, got %d", succeeded)
	}

	done, err := store.ListBoldActions(ctx, uid, domain.BoldActionQuery{
		Status: domain.BoldActionCompleted, Field: "completedAt", From: base, To: base.Add(24 * time.Hour),
	})
	if err != nil || len(done) != 1 || done[0].ID != "older" {
		t.Errorf("expected the completed action in range, got %+v (%v)", done, err)
	}
}

func TestStandups_FilterAndComplete(t *testing.T) {
	store, _ := newEmulatorStore(t)
	ctx := context.Background()
	member := uuid.NewString()
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	for i, sup := range []string{"s1", "s2", "s1"} {
		st := &domain.Standup{ID: uuid.NewString(), SupervisorID: sup, Status: domain.StandupScheduled, ScheduledFor: base.Add(time.Duration(2-i) * time.Hour)}
		if err := store.CreateStandup(ctx, member, st); err != nil {
			t.Fatalf("create standup: %v", err)
		}
	}

	got, err := store.ListStandups(ctx, member, domain.StandupQuery{SupervisorID: "s1", Field: "scheduledFor", From: base})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || !got[0].ScheduledFor.Before(got[1].ScheduledFor) || got[0].MemberID != member {
		t.Fatalf("expected two s1 standups oldest first, got %+v", got)
	}

	if err := store.CompleteStandup(ctx, member, got[0].ID, base.Add(3*time.Hour), "held"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var conflict *domain.ErrConflict
	if err := store.CompleteStandup(ctx, member, got[0].ID, base.Add(4*time.Hour), "again"); !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	var nf *domain.ErrNotFound
	if err := store.CompleteStandup(ctx, member, "missing", base, ""); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBatchUpdateUsers_MissingUserAbortsAll(t *testing.T) {
	store, raw := newEmulatorStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	seedUser(t, raw, id, map[string]any{"role": "team_member", "companyName": "Acme"})
	role := domain.RoleSupervisor

	err := store.BatchUpdateUsers(ctx, map[string]domain.UserUpdate{
		id:               {Role: &role},
		uuid.NewString(): {Role: &role},
	})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if u, _ := store.GetUser(ctx, id); u.Role != domain.RoleTeamMember {
		t.Errorf("expected the existing user untouched, got %q", u.Role)
	}

	if err := store.BatchUpdateUsers(ctx, map[string]domain.UserUpdate{id: {Role: &role}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, _ := store.GetUser(ctx, id); u.Role != domain.RoleSupervisor {
		t.Errorf("expected role updated, got %q", u.Role)
	}
}

func TestCompanies_CodeLookup(t *testing.T) {
	store, raw := newEmulatorStore(t)
	ctx := context.Background()
	name := "Acme " + uuid.NewString()
	code := uuid.NewString()[:8]
	if _, err := raw.Collection("companies").Doc(name).Set(ctx, map[string]any{"name": name, "size": 12}); err != nil {
		t.Fatalf("seed company: %v", err)
	}

	if err := store.SetCompanyCode(ctx, name, code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := store.FindCompanyByCode(ctx, code)
	if err != nil || c.Name != name || c.Size != 12 {
		t.Errorf("expected %s by code, got %+v (%v)", name, c, err)
	}

	var nf *domain.ErrNotFound
	if err := store.SetCompanyCode(ctx, "missing "+uuid.NewString(), code); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindCompanyByCode(ctx, "no-such-code"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
