package http

import (
	"Shortly-Backend/internal/metrics"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/service"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RedirectHandler serves the catch-all short code redirect.
type RedirectHandler struct {
	resolver *service.Resolver
	log      *zap.Logger
}

func NewRedirectHandler(resolver *service.Resolver, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, log: log}
}

// systemPrefixes are paths that must never be treated as short codes.
var systemPrefixes = []string{"/api/", "/swagger/", "/metrics", "/health", "/ready"}

// Redirect handles GET /{code}.
//
// @Summary Redirect to original URL
// @Description Resolves a short code and issues a 302 redirect
// @Tags redirect
// @Param code path string true "Short code"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /{code} [get]
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/" {
		writeError(w, "Short code is required", http.StatusNotFound)
		return
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			writeError(w, "Not found", http.StatusNotFound)
			return
		}
	}

	code := strings.Trim(r.URL.Path, "/")
	if code == "" || strings.Contains(code, "/") {
		writeError(w, "Short URL not found", http.StatusNotFound)
		return
	}

	access := service.AccessData{
		UserAgent: r.UserAgent(),
		IPAddress: extractIPAddress(r),
		Referer:   r.Referer(),
	}

	mapping, err := h.resolver.Resolve(r.Context(), code, access)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			metrics.RedirectMisses.Inc()
			writeError(w, "Short URL not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to resolve short code",
			zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	metrics.Redirects.Inc()
	http.Redirect(w, r, mapping.OriginalURL, http.StatusFound)
}
