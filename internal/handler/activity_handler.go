package handler

import (
	"net/http"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Trainings
// ============================================================

func listTrainingsHandler(catalog *service.TrainingCatalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trainings")
		defer span.End()

		plan, err := catalog.ForUser(ctx, session(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func markVideoHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trainings/{trainingId}/video")
		defer span.End()

		trainingID := chi.URLParam(r, "trainingId")
		if err := svc.MarkVideoCompleted(ctx, session(r), trainingID, time.Now()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "video completed", ID: trainingID})
	}
}

func markWorksheetHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trainings/{trainingId}/worksheet")
		defer span.End()

		trainingID := chi.URLParam(r, "trainingId")
		if err := svc.MarkWorksheetCompleted(ctx, session(r), trainingID, time.Now()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "worksheet completed", ID: trainingID})
	}
}

// ============================================================
// Bold Actions
// ============================================================

func listBoldActionsHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bold-actions")
		defer span.End()

		actions, err := svc.ListBoldActions(ctx, session(r), r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, actions)
	}
}

func createBoldActionHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bold-actions")
		defer span.End()

		var req domain.CreateBoldActionRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ba, err := svc.CreateBoldAction(ctx, session(r), req, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ba)
	}
}

func completeBoldActionHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bold-actions/{actionId}/complete")
		defer span.End()

		var req domain.BoldActionCompletion
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ba, err := svc.CompleteBoldAction(ctx, session(r), chi.URLParam(r, "actionId"), req, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ba)
	}
}

// ============================================================
// Standups
// ============================================================

func upcomingStandupsHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/standups/upcoming")
		defer span.End()

		standups, err := svc.ListUpcomingStandups(ctx, session(r), time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, standups)
	}
}

func scheduleStandupHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/team/{memberId}/standups")
		defer span.End()

		var req domain.ScheduleStandupRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		st, err := svc.ScheduleStandup(ctx, session(r), chi.URLParam(r, "memberId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

func completeStandupHandler(svc *service.ActivityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/team/{memberId}/standups/{standupId}/complete")
		defer span.End()

		var req domain.CompleteStandupRequest
		if r.ContentLength != 0 {
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		st, err := svc.CompleteStandup(ctx, session(r),
			chi.URLParam(r, "memberId"),
			chi.URLParam(r, "standupId"),
			req,
			time.Now(),
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
