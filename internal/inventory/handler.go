package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Tishkos/arbatis-pos/internal/platform/httpx"
	"github.com/Tishkos/arbatis-pos/internal/shared"
)

// AdjustmentRequest is the POST body for a manual stock adjustment.
type AdjustmentRequest struct {
	ItemKind string  `json:"item_kind" validate:"required,oneof=product motorcycle"`
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Qty      float64 `json:"qty" validate:"required"`
	Note     string  `json:"note,omitempty" validate:"max=300"`
	RefID    string  `json:"ref_id,omitempty" validate:"omitempty,uuid"`
}

// Handler manages stock movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-movements", h.list)
	r.Post("/stock-movements", h.adjust)
	r.Get("/stock/{kind}/{id}", h.stockLevel)
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

	filters := ListFilters{Page: page, Limit: limit}
	if v := r.URL.Query().Get("item_kind"); v != "" {
		filters.ItemKind = ItemKind(v)
	}
	if v := r.URL.Query().Get("item_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.ItemID = id
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.From = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.To = t
		}
	}

	movements, total, err := h.service.ListMovements(r.Context(), filters)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"movements":  movements,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	movement, err := h.service.PostAdjustment(r.Context(), AdjustmentInput{
		ItemKind: ItemKind(req.ItemKind),
		ItemID:   req.ItemID,
		Qty:      req.Qty,
		Note:     req.Note,
		Actor:    actorFrom(r),
		RefID:    req.RefID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNegativeStock):
			httpx.ProblemWithReason(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error(), "negative-stock")
		case errors.Is(err, ErrInvalidQuantity):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrItemNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		default:
			h.logger.Error("post adjustment failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) stockLevel(w http.ResponseWriter, r *http.Request) {
	kind := ItemKind(chi.URLParam(r, "kind"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item reference")
		return
	}
	stock, err := h.service.StockLevel(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("stock level failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_kind": kind, "item_id": id, "stock": stock})
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}
