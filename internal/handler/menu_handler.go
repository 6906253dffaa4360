package handler

import (
	"net/http"

	"orderdesk/internal/models"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"
)

type MenuHandler struct {
	menuService service.MenuService
	logger      *logger.Logger
}

func NewMenuHandler(menuService service.MenuService, log *logger.Logger) *MenuHandler {
	return &MenuHandler{menuService: menuService, logger: log.WithComponent("menu_handler")}
}

// GetMenu handles GET /api/v1/restaurants/{slug}/menu
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.menuService.GetMenu(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, menu)
}

// UpdateProduct handles PATCH /api/v1/restaurants/{slug}/products/{id}
func (h *MenuHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var update models.ProductUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.menuService.UpdateProduct(r.Context(), r.PathValue("slug"), id, update)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// UpdateSettings handles PATCH /api/v1/restaurants/{slug}/settings
func (h *MenuHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update models.SettingsUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.menuService.UpdateSettings(r.Context(), r.PathValue("slug"), update)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tenant)
}
