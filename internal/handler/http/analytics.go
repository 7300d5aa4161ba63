package http

import (
	"Shortly-Backend/internal/analytics"
	"Shortly-Backend/internal/auth"
	"Shortly-Backend/internal/repository"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// AnalyticsHandlers serves aggregated click statistics.
type AnalyticsHandlers struct {
	aggregator *analytics.Aggregator
	log        *zap.Logger
}

func NewAnalyticsHandlers(aggregator *analytics.Aggregator, log *zap.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{aggregator: aggregator, log: log}
}

// Summary handles GET /api/analytics.
//
// @Summary System analytics summary
// @Description Totals, averages, top URLs and recent URLs; pass owner=me to scope to the caller
// @Tags analytics
// @Produce json
// @Param owner query string false "Pass 'me' to scope to the caller's URLs"
// @Success 200 {object} analytics.SystemSummary
// @Router /api/analytics [get]
func (h *AnalyticsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	var ownerID *int64
	if r.URL.Query().Get("owner") == "me" {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			writeError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		ownerID = &userID
	}

	summary, err := h.aggregator.Summary(r.Context(), ownerID)
	if err != nil {
		h.log.Error("failed to build analytics summary", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary, http.StatusOK)
}

// Detail handles GET /api/analytics/{code}.
//
// @Summary Per-URL analytics
// @Description Click counts, derived rates and recent access log for one short code
// @Tags analytics
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} analytics.MappingDetail
// @Failure 404 {object} ErrorResponse
// @Router /api/analytics/{code} [get]
func (h *AnalyticsHandlers) Detail(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, "Short code is required", http.StatusBadRequest)
		return
	}

	var requesterID *int64
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		requesterID = &userID
	}

	detail, err := h.aggregator.Detail(r.Context(), code, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			writeError(w, "Short URL not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to build mapping analytics",
			zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, detail, http.StatusOK)
}

// Trends handles GET /api/analytics/trends/{days}.
//
// @Summary Daily click trends
// @Description Per-day creation and click counts over the requested period
// @Tags analytics
// @Produce json
// @Param days path int true "Period in days (clamped to 1-365)"
// @Success 200 {object} analytics.TrendReport
// @Router /api/analytics/trends/{days} [get]
func (h *AnalyticsHandlers) Trends(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.PathValue("days"))
	if err != nil {
		writeError(w, "Days must be an integer", http.StatusBadRequest)
		return
	}

	report, err := h.aggregator.Trends(r.Context(), days)
	if err != nil {
		h.log.Error("failed to compute click trends", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, report, http.StatusOK)
}
