package handler

import (
	"net/http"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Company settings
// ============================================================

type roleRequest struct {
	Role domain.Role `json:"role"`
}

type supervisorRequest struct {
	SupervisorID string `json:"supervisorId"`
}

type batchResponse struct {
	Updated int `json:"updated"`
}

// companyLookupResponse is all the public join flow learns about a company.
type companyLookupResponse struct {
	Name string `json:"name"`
}

func listTeamHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/team")
		defer span.End()

		team, err := svc.ListTeam(ctx, session(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func listDirectoryHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/users")
		defer span.End()

		entries, err := svc.ListDirectory(ctx, session(r), r.URL.Query().Get("q"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func updateRoleHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/company/users/{userId}/role")
		defer span.End()

		var req roleRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		userID := chi.URLParam(r, "userId")
		if err := svc.UpdateRole(ctx, session(r), userID, req.Role); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "role updated", ID: userID})
	}
}

func assignSupervisorHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/company/users/{userId}/supervisor")
		defer span.End()

		var req supervisorRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		userID := chi.URLParam(r, "userId")
		if err := svc.AssignSupervisor(ctx, session(r), userID, req.SupervisorID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "supervisor updated", ID: userID})
	}
}

func batchUpdateHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/users/batch")
		defer span.End()

		var req domain.BatchUserUpdate
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		n, err := svc.BatchUpdate(ctx, session(r), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, batchResponse{Updated: n})
	}
}

func companyByCodeHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/by-code/{code}")
		defer span.End()

		company, err := svc.LookupByCode(ctx, chi.URLParam(r, "code"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, companyLookupResponse{Name: company.Name})
	}
}
