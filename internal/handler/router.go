package handler

import (
	"context"
	"net/http"
	"time"

	"orderdesk/internal/middleware"
	"orderdesk/pkg/logger"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handlers struct {
	Orders  *OrderHandler
	Menu    *MenuHandler
	Reports *ReportHandler
	Health  HealthChecker
}

func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/menu", h.Menu.GetMenu)
	mux.HandleFunc("POST /api/v1/restaurants/{slug}/orders", h.Orders.PlaceOrder)
	mux.HandleFunc("GET /api/v1/track/{token}", h.Orders.TrackOrder)

	// Staff routes
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/orders", h.Orders.ListOrders)
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/orders/{id}", h.Orders.GetOrder)
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/orders/{id}/history", h.Orders.OrderHistory)
	mux.HandleFunc("PATCH /api/v1/restaurants/{slug}/orders/{id}/status", h.Orders.UpdateStatus)
	mux.HandleFunc("PATCH /api/v1/restaurants/{slug}/products/{id}", h.Menu.UpdateProduct)
	mux.HandleFunc("PATCH /api/v1/restaurants/{slug}/settings", h.Menu.UpdateSettings)
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/reports/summary", h.Reports.GetSummary)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.Health.HealthCheck(ctx); err != nil {
				respondWithError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.Chain(mux, middleware.Logging(log), middleware.Recovery(log))
}
