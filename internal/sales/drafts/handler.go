package drafts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Tishkos/arbatis-pos/internal/platform/httpx"
)

// Handler manages the draft tab endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers draft routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/tabs", h.openTab)
		r.Get("/tabs", h.listTabs)
		r.Route("/{tabID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.save)
			r.Delete("/", h.closeTab)
			r.Post("/lines/{lineID}/resolve", h.resolveLine)
			r.Post("/finalize", h.finalize)
		})
	})
}

func (h *Handler) openTab(w http.ResponseWriter, r *http.Request) {
	var req OpenTabRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.OpenTab(r.Context(), SaleType(req.SaleType))
	if err != nil {
		h.logger.Error("open tab failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) listTabs(w http.ResponseWriter, r *http.Request) {
	saleType := SaleType(r.URL.Query().Get("sale_type"))
	tabs, err := h.service.ListTabs(r.Context(), saleType)
	if err != nil {
		if errors.Is(err, ErrInvalidSaleType) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("list tabs failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sale_type": saleType, "tabs": tabs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), chi.URLParam(r, "tabID"))
	if err != nil {
		h.respondError(w, err, "get draft")
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var form DraftForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	res, err := h.service.Save(r.Context(), chi.URLParam(r, "tabID"), form)
	if err != nil {
		h.respondError(w, err, "save draft")
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) closeTab(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseTab(r.Context(), chi.URLParam(r, "tabID")); err != nil {
		h.respondError(w, err, "close tab")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveLine(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.ResolveLine(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.respondError(w, err, "resolve line")
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	invoiceID, number, err := h.service.Finalize(r.Context(), chi.URLParam(r, "tabID"), actorFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrCustomerRequired),
			errors.Is(err, ErrEmptyLines),
			errors.Is(err, ErrUnresolvedLine),
			errors.Is(err, ErrPaymentBounds):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
		case errors.Is(err, ErrStockExceeded):
			httpx.ProblemWithReason(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error(), "stock-exceeded")
		default:
			h.respondError(w, err, "finalize draft")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, FinalizeResponse{InvoiceID: invoiceID, Number: number})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "draft not found")
	case errors.Is(err, ErrStaleSnapshot):
		httpx.ProblemWithReason(w, http.StatusConflict, "Conflict", err.Error(), "stale-snapshot")
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}
