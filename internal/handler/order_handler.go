package handler

import (
	"net/http"

	"orderdesk/internal/models"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"
)

type OrderHandler struct {
	orderService service.OrderService
	logger       *logger.Logger
}

func NewOrderHandler(orderService service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: log.WithComponent("order_handler")}
}

type placeOrderRequest struct {
	models.CustomerDetails
	Items []models.CartLine `json:"items"`
	Total *int64            `json:"total,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// PlaceOrder handles POST /api/v1/restaurants/{slug}/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		TenantSlug: r.PathValue("slug"),
		Customer:   req.CustomerDetails,
		Items:      req.Items,
		Total:      req.Total,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

// TrackOrder handles GET /api/v1/track/{token}
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrderByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

// ListOrders handles GET /api/v1/restaurants/{slug}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filters models.OrderFilters

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			respondWithServiceError(w, r, h.logger, err)
			return
		}
		filters.Status = status
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters.Limit = limit

	orders, err := h.orderService.ListOrders(r.Context(), r.PathValue("slug"), filters)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	respondWithJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/restaurants/{slug}/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), r.PathValue("slug"), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

// OrderHistory handles GET /api/v1/restaurants/{slug}/orders/{id}/history
func (h *OrderHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	events, err := h.orderService.OrderHistory(r.Context(), r.PathValue("slug"), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if events == nil {
		events = []models.StatusEvent{}
	}
	respondWithJSON(w, http.StatusOK, events)
}

// UpdateStatus handles PATCH /api/v1/restaurants/{slug}/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.TransitionOrder(r.Context(), r.PathValue("slug"), id, req.Status, service.ReasonStaff)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}
