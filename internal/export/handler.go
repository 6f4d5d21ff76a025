package export

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tishkos/arbatis-pos/internal/platform/httpx"
)

// Enqueuer submits an export run to the background queue.
type Enqueuer interface {
	EnqueueExport(ctx context.Context) error
}

// Handler exposes the export trigger endpoint.
type Handler struct {
	logger   *slog.Logger
	enqueuer Enqueuer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, enqueuer: enqueuer}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/export", h.trigger)
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	if err := h.enqueuer.EnqueueExport(r.Context()); err != nil {
		h.logger.Error("enqueue export failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}
