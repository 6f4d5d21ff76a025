package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Tishkos/arbatis-pos/internal/platform/httpx"
	"github.com/Tishkos/arbatis-pos/internal/shared"
)

// Handler serves the activity log.
type Handler struct {
	logger *slog.Logger
	log    *Logger
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, log *Logger) *Handler {
	return &Handler{logger: logger, log: log}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/activities", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}

	entries, total, err := h.log.List(r.Context(), r.URL.Query().Get("entity"), limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("list activities failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"activities": entries,
		"pagination": shared.NewPagination(page, limit, total),
	})
}
