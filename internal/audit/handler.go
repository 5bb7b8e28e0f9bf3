package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/platform/httpx"
)

// Handler menyajikan endpoint timeline audit.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes mendaftarkan endpoint audit. Halaman dasbor hanya terbuka
// untuk superadmin sehingga jejak audit ikut terlindungi.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePage(authz.PageDashboard))
		r.Get("/", h.handleTimeline)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), Filters{
		Actor:    q.Get("actor"),
		Action:   q.Get("action"),
		Entity:   q.Get("entity"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("audit timeline", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	items := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		items = append(items, map[string]any{
			"actor_id":  row.ActorID,
			"action":    row.Action,
			"entity":    row.Entity,
			"entity_id": row.EntityID,
			"meta":      row.Meta,
			"at":        row.At,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":     items,
		"page":      result.Page,
		"page_size": result.PageSize,
		"has_next":  result.HasNext,
	})
}
