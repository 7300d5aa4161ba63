package http

import (
	"Shortly-Backend/internal/auth"
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MappingHandlers serves short URL creation, listing and deletion.
type MappingHandlers struct {
	allocator   *service.Allocator
	deactivator *service.Deactivator
	storage     repository.Storage
	cfg         *config.Shortener
	log         *zap.Logger
}

func NewMappingHandlers(
	allocator *service.Allocator,
	deactivator *service.Deactivator,
	storage repository.Storage,
	cfg *config.Shortener,
	log *zap.Logger,
) *MappingHandlers {
	return &MappingHandlers{
		allocator:   allocator,
		deactivator: deactivator,
		storage:     storage,
		cfg:         cfg,
		log:         log,
	}
}

// CreateMappingRequest is the POST /api/shorten body.
type CreateMappingRequest struct {
	URL         string  `json:"url"`
	CustomCode  string  `json:"custom_code,omitempty"`
	Description *string `json:"description,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
}

// CreateMappingResponse is the successful allocation body.
type CreateMappingResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListMappingsResponse is the paginated GET /api/urls body.
type ListMappingsResponse struct {
	URLs       []domain.Mapping `json:"urls"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// CreateMapping handles POST /api/shorten.
//
// @Summary Create short URL
// @Description Allocates a short code for a URL, or returns the existing active one
// @Tags urls
// @Accept json
// @Produce json
// @Param request body CreateMappingRequest true "URL to shorten"
// @Success 201 {object} CreateMappingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/shorten [post]
func (h *MappingHandlers) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req CreateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if details := h.validateCreate(&req); len(details) > 0 {
		writeValidationError(w, details...)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			writeValidationError(w, FieldError{
				Field:   "expires_at",
				Message: "must be an RFC 3339 timestamp",
			})
			return
		}
		expiresAt = &parsed
	}

	opts := service.AllocateOptions{
		CustomCode:  req.CustomCode,
		Description: req.Description,
		ExpiresAt:   expiresAt,
	}
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		opts.OwnerID = &userID
	}

	mapping, err := h.allocator.Allocate(r.Context(), req.URL, opts)
	if err != nil && errors.Is(err, service.ErrAllocationConflict) {
		// A concurrent insert claimed the generated code; one more pass
		// draws a fresh candidate.
		mapping, err = h.allocator.Allocate(r.Context(), req.URL, opts)
	}
	if err != nil {
		h.writeAllocateError(w, err)
		return
	}

	writeJSON(w, CreateMappingResponse{
		ShortCode:   mapping.ShortCode,
		ShortURL:    h.shortURL(mapping.ShortCode),
		OriginalURL: mapping.OriginalURL,
		ExpiresAt:   mapping.ExpiresAt,
		CreatedAt:   mapping.CreatedAt,
	}, http.StatusCreated)
}

func (h *MappingHandlers) validateCreate(req *CreateMappingRequest) []FieldError {
	var details []FieldError

	trimmed := strings.TrimSpace(req.URL)
	switch {
	case trimmed == "":
		details = append(details, FieldError{Field: "url", Message: "url is required"})
	case len(trimmed) > h.cfg.MaxURLLength:
		details = append(details, FieldError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", h.cfg.MaxURLLength),
		})
	default:
		parsed, err := url.Parse(trimmed)
		if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			details = append(details, FieldError{
				Field:   "url",
				Message: "url must be an absolute http or https URL",
			})
		}
	}

	if req.Description != nil && len(*req.Description) > 500 {
		details = append(details, FieldError{
			Field:   "description",
			Message: "description must not exceed 500 characters",
		})
	}

	return details
}

func (h *MappingHandlers) writeAllocateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCustomCode):
		writeValidationError(w, FieldError{
			Field:   "custom_code",
			Message: "must be 3-30 alphanumeric characters",
		})
	case errors.Is(err, service.ErrCustomCodeTaken):
		writeError(w, "Custom code already in use", http.StatusConflict)
	case errors.Is(err, service.ErrExpiryInPast):
		writeValidationError(w, FieldError{
			Field:   "expires_at",
			Message: "must be in the future",
		})
	case errors.Is(err, service.ErrAllocationConflict):
		writeError(w, "Unable to allocate short code. Please try again.", http.StatusConflict)
	case errors.Is(err, service.ErrGenerationExhausted):
		h.log.Error("short code space exhausted")
		writeError(w, "Failed to generate short code", http.StatusInternalServerError)
	default:
		h.log.Error("failed to create mapping", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ListMappings handles GET /api/urls.
//
// @Summary List short URLs
// @Description Paginated listing of active mappings, optionally scoped to the caller
// @Tags urls
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param owner query string false "Pass 'me' to list only the caller's URLs"
// @Success 200 {object} ListMappingsResponse
// @Router /api/urls [get]
func (h *MappingHandlers) ListMappings(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := repository.ListFilter{ActiveOnly: true}
	if r.URL.Query().Get("owner") == "me" {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			writeError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		filter.OwnerID = &userID
	}

	items, total, err := h.storage.ListMappings(r.Context(), filter, page, limit)
	if err != nil {
		h.log.Error("failed to list mappings", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	urls := make([]domain.Mapping, 0, len(items))
	for _, m := range items {
		urls = append(urls, *m)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	writeJSON(w, ListMappingsResponse{
		URLs:       urls,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, http.StatusOK)
}

// DeleteMapping handles DELETE /api/urls/{code}.
//
// @Summary Deactivate short URL
// @Description Soft-deletes a mapping; its code is never reused
// @Tags urls
// @Param code path string true "Short code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/{code} [delete]
func (h *MappingHandlers) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, "Short code is required", http.StatusBadRequest)
		return
	}

	var requesterID *int64
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		requesterID = &userID
	}

	if err := h.deactivator.Deactivate(r.Context(), code, requesterID); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			writeError(w, "Short URL not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to deactivate mapping",
			zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MappingHandlers) shortURL(code string) string {
	return strings.TrimRight(h.cfg.BaseURL, "/") + "/" + code
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
