package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/handler"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/cache"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/memstore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type stubContent struct{}

func (stubContent) ListTrainings(context.Context) ([]domain.Training, error) {
	return []domain.Training{
		{ID: "101", Title: "Listening", PublishedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "102", Title: "Feedback", PublishedAt: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
	}, nil
}

type downStore struct{ *memstore.Store }

func (downStore) Ping(context.Context) error { return context.DeadlineExceeded }

func seed() *memstore.Store {
	store := memstore.New()
	store.PutCompany(domain.Company{Name: "Acme", Code: "48213", ExecutiveUID: "exec"})
	store.PutUser(domain.User{ID: "exec", FirstName: "Eve", Role: domain.RoleExecutive, CompanyName: "Acme"})
	store.PutUser(domain.User{ID: "S", FirstName: "Sam", Role: domain.RoleSupervisor, CompanyName: "Acme"})
	store.PutUser(domain.User{ID: "A", FirstName: "Ada", Role: domain.RoleTeamMember, CompanyName: "Acme", SupervisorID: "S"})
	store.PutUser(domain.User{ID: "B", FirstName: "Bo", Role: domain.RoleTeamMember, CompanyName: "Acme", SupervisorID: "S"})
	return store
}

func newTestRouter(t *testing.T, store *memstore.Store) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	bulkhead := resilience.NewBulkhead(4)

	reports := cache.New[*domain.WeeklyMetrics](time.Minute, cache.WithSweepInterval(0))
	trainings := cache.New[[]domain.Training](time.Minute, cache.WithSweepInterval(0))
	t.Cleanup(reports.Close)
	t.Cleanup(trainings.Close)

	catalog := service.NewTrainingCatalog(stubContent{}, trainings, store, metrics, logger)
	return handler.NewRouter(handler.Services{
		Aggregator: service.NewAggregator(store, reports, bulkhead, calendar.New(time.UTC), metrics, logger),
		Activity:   service.NewActivityService(store, bulkhead, logger),
		Company:    service.NewCompanyService(store, catalog, bulkhead, logger),
		Catalog:    catalog,
		Sessions:   service.NewSessionResolver(store, testSecret, "", logger),
		Store:      store,
	}, []string{"https://app.leaderforge.example"}, metrics, logger)
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}

func do(t *testing.T, router http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", bearer(t, user))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHealthz_StoreDown(t *testing.T) {
	logger := zap.NewNop()
	router := handler.NewRouter(handler.Services{Store: downStore{memstore.New()}}, nil, observability.NewMetrics(), logger)

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %q", health.Status)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/v1/dashboard/executive", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/executive", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/dashboard/executive", "ghost", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestExecutiveDashboard(t *testing.T) {
	store := seed()
	store.PutProgress("A", "101", domain.TrainingProgress{VideoCompleted: true, WorksheetCompleted: true, LastUpdated: time.Now()})
	router := newTestRouter(t, store)

	rec := do(t, router, http.MethodGet, "/v1/dashboard/executive?refresh=true", "exec", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.WeeklyMetrics
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Teams) != 1 || report.Teams[0].TeamSize != 2 {
		t.Fatalf("expected one team of 2, got %+v", report.Teams)
	}
	if report.Weekly.Trainings.Completed != 1 {
		t.Errorf("expected 1 member with a training, got %d", report.Weekly.Trainings.Completed)
	}

	rec = do(t, router, http.MethodGet, "/v1/dashboard/executive", "S", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a supervisor, got %d", rec.Code)
	}
}

func TestMemberWeek(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/v1/users/A/weeks/0", "S", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/v1/users/A/weeks/x", "/v1/users/A/weeks/4"} {
		if rec := do(t, router, http.MethodGet, path, "S", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}

	if rec := do(t, router, http.MethodGet, "/v1/users/A/four-week", "B", nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a peer, got %d", rec.Code)
	}
}

func TestBoldActionFlow(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodPost, "/v1/bold-actions", "A", domain.CreateBoldActionRequest{
		Action:    "Lead standup",
		Timeframe: "1 week",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ba domain.BoldAction
	if err := json.NewDecoder(rec.Body).Decode(&ba); err != nil {
		t.Fatalf("decode: %v", err)
	}

	path := "/v1/bold-actions/" + ba.ID + "/complete"
	body := map[string]string{"actualTimeframe": "4 days", "reflectionNotes": "ok"}
	if rec := do(t, router, http.MethodPost, path, "A", body); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPost, path, "A", body); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on second completion, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/bold-actions?status=completed", "A", nil)
	var list []domain.BoldAction
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 completed action, got %d", len(list))
	}
}

func TestCreateBoldAction_InvalidBody(t *testing.T) {
	router := newTestRouter(t, seed())

	req := httptest.NewRequest(http.MethodPost, "/v1/bold-actions", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", bearer(t, "A"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTrainingsAndProgress(t *testing.T) {
	router := newTestRouter(t, seed())

	for _, part := range []string{"video", "worksheet"} {
		if rec := do(t, router, http.MethodPost, "/v1/trainings/101/"+part, "A", nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", part, rec.Code)
		}
	}

	rec := do(t, router, http.MethodGet, "/v1/trainings", "A", nil)
	var plan domain.TrainingPlan
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plan.NextTrainingID != "102" {
		t.Errorf("expected next training 102, got %q", plan.NextTrainingID)
	}
}

func TestStandupFlow(t *testing.T) {
	router := newTestRouter(t, seed())
	when := time.Now().Add(24 * time.Hour).UTC()

	rec := do(t, router, http.MethodPost, "/v1/team/A/standups", "S", domain.ScheduleStandupRequest{ScheduledFor: when})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var st domain.Standup
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = do(t, router, http.MethodGet, "/v1/standups/upcoming", "S", nil)
	var upcoming []domain.Standup
	if err := json.NewDecoder(rec.Body).Decode(&upcoming); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != st.ID {
		t.Errorf("expected the scheduled standup, got %+v", upcoming)
	}

	if rec := do(t, router, http.MethodPost, "/v1/team/A/standups", "A", domain.ScheduleStandupRequest{ScheduledFor: when}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a member, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/team/A/standups/"+st.ID+"/complete", "S", domain.CompleteStandupRequest{Notes: "done"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCompanySettings(t *testing.T) {
	store := seed()
	router := newTestRouter(t, store)

	rec := do(t, router, http.MethodGet, "/v1/company/users?q=ada", "exec", nil)
	var entries []domain.DirectoryEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "A" {
		t.Errorf("expected only Ada, got %+v", entries)
	}

	if rec := do(t, router, http.MethodPut, "/v1/company/users/B/role", "exec", map[string]string{"role": "supervisor"}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPut, "/v1/company/users/A/supervisor", "exec", map[string]string{"supervisorId": "B"}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if u, _ := store.GetUser(context.Background(), "A"); u.SupervisorID != "B" {
		t.Errorf("expected A to report to B, got %q", u.SupervisorID)
	}

	rec = do(t, router, http.MethodPost, "/v1/company/users/batch", "exec", domain.BatchUserUpdate{UserIDs: []string{"A"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when the batch changes nothing, got %d", rec.Code)
	}

	if rec := do(t, router, http.MethodPut, "/v1/company/users/A/role", "S", map[string]string{"role": "executive"}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a supervisor, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/team", "B", nil)
	var team []domain.DirectoryEntry
	if err := json.NewDecoder(rec.Body).Decode(&team); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(team) != 1 || team[0].ID != "A" {
		t.Errorf("expected B's team to be [A], got %+v", team)
	}
}

func TestCompanyByCode_Public(t *testing.T) {
	router := newTestRouter(t, seed())

	rec := do(t, router, http.MethodGet, "/v1/companies/by-code/48213", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Acme" {
		t.Errorf("expected Acme, got %v", body["name"])
	}
	if _, leaked := body["executiveUid"]; leaked {
		t.Error("expected lookup to expose only the name")
	}

	if rec := do(t, router, http.MethodGet, "/v1/companies/by-code/abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/companies/by-code/99999", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, seed())

	req := httptest.NewRequest(http.MethodOptions, "/v1/bold-actions", nil)
	req.Header.Set("Origin", "https://app.leaderforge.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.leaderforge.example" {
		t.Errorf("expected allowed origin header, got %q", got)
	}
}
