package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Progress reports
// ============================================================

// GET /v1/dashboard/executive?refresh=true
func executiveDashboardHandler(agg *service.Aggregator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/executive")
		defer span.End()

		refresh := queryBool(r, "refresh")
		span.SetAttributes(attribute.Bool("refresh", refresh))

		report, err := agg.ComputeCompanyWeeklyMetrics(ctx, session(r), time.Now(), refresh)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// GET /v1/users/{userId}/weeks/{weekIndex}?supervisorId=
func memberWeekHandler(agg *service.Aggregator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/weeks/{weekIndex}")
		defer span.End()

		weekIndex, err := strconv.Atoi(chi.URLParam(r, "weekIndex"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "weekIndex must be an integer")
			return
		}

		rec, err := agg.MemberWeek(ctx, session(r),
			chi.URLParam(r, "userId"),
			r.URL.Query().Get("supervisorId"),
			weekIndex,
			time.Now(),
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// GET /v1/users/{userId}/four-week
func memberFourWeekHandler(agg *service.Aggregator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/four-week")
		defer span.End()

		totals, err := agg.MemberFourWeek(ctx, session(r), chi.URLParam(r, "userId"), time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}
