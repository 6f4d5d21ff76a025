package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Tishkos/arbatis-pos/internal/activity"
	"github.com/Tishkos/arbatis-pos/internal/catalog/categories"
	"github.com/Tishkos/arbatis-pos/internal/catalog/motorcycles"
	"github.com/Tishkos/arbatis-pos/internal/catalog/products"
	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/export"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
	"github.com/Tishkos/arbatis-pos/internal/sales/invoices"
	"github.com/Tishkos/arbatis-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	MotorcyclesHandler *motorcycles.Handler
	CustomersHandler   *customers.Handler
	InventoryHandler   *inventory.Handler
	DraftsHandler      *drafts.Handler
	InvoicesHandler    *invoices.Handler
	ActivityHandler    *activity.Handler
	ExportHandler      *export.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Arbatis defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.CategoriesHandler.MountRoutes(r)
		params.ProductsHandler.MountRoutes(r)
		params.MotorcyclesHandler.MountRoutes(r)
		params.CustomersHandler.MountRoutes(r)
		params.InventoryHandler.MountRoutes(r)
		params.DraftsHandler.MountRoutes(r)
		params.InvoicesHandler.MountRoutes(r)
		if params.ActivityHandler != nil {
			params.ActivityHandler.MountRoutes(r)
		}
		if params.ExportHandler != nil {
			params.ExportHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
