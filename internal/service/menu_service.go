package service

import (
	"context"
	"strings"
	"time"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMenuCacheSize = 256

type MenuService interface {
	GetMenu(ctx context.Context, slug string) (*models.Menu, error)
	GetTenant(ctx context.Context, slug string) (models.Tenant, error)
	UpdateProduct(ctx context.Context, slug string, productID int64, update models.ProductUpdate) (models.Product, error)
	UpdateSettings(ctx context.Context, slug string, update models.SettingsUpdate) (models.Tenant, error)
}

type menuService struct {
	store  dal.Store
	cache  *expirable.LRU[string, *models.Menu]
	logger *logger.Logger
}

// NewMenuService builds the menu service. A cacheTTL of zero disables the public
// menu cache.
func NewMenuService(store dal.Store, cacheTTL time.Duration, log *logger.Logger) MenuService {
	s := &menuService{
		store:  store,
		logger: log.WithComponent("menu_service"),
	}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, *models.Menu](defaultMenuCacheSize, nil, cacheTTL)
	}
	return s
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// GetMenu returns the public menu of an active restaurant. The returned value is
// shared with the cache and must not be modified.
func (s *menuService) GetMenu(ctx context.Context, slug string) (*models.Menu, error) {
	slug = normalizeSlug(slug)
	if s.cache != nil {
		if menu, ok := s.cache.Get(slug); ok {
			return menu, nil
		}
	}

	tenant, err := s.store.Tenants().GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, models.ErrTenantUnavailable
	}

	categories, err := s.store.Products().ListMenu(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	menu := &models.Menu{Tenant: tenant, Categories: categories}
	if s.cache != nil {
		s.cache.Add(slug, menu)
	}
	return menu, nil
}

func (s *menuService) GetTenant(ctx context.Context, slug string) (models.Tenant, error) {
	return s.store.Tenants().GetBySlug(ctx, normalizeSlug(slug))
}

// UpdateProduct changes a product's price or availability. Orders already placed
// keep the snapshot they were taken with.
func (s *menuService) UpdateProduct(ctx context.Context, slug string, productID int64, update models.ProductUpdate) (models.Product, error) {
	if update.Price == nil && update.Available == nil {
		return models.Product{}, models.NewValidationError("nothing to update")
	}
	if update.Price != nil && *update.Price < 0 {
		return models.Product{}, models.NewValidationError("price must not be negative")
	}

	slug = normalizeSlug(slug)
	tenant, err := s.store.Tenants().GetBySlug(ctx, slug)
	if err != nil {
		return models.Product{}, err
	}

	product, err := s.store.Products().Update(ctx, tenant.ID, productID, update)
	if err != nil {
		return models.Product{}, err
	}
	s.invalidate(slug)

	s.logger.Info("Product updated",
		"restaurant", slug,
		"product_id", product.ID,
		"price", product.Price,
		"available", product.Available)
	return product, nil
}

func (s *menuService) UpdateSettings(ctx context.Context, slug string, update models.SettingsUpdate) (models.Tenant, error) {
	if update.EstimatedWaitMinutes != nil && *update.EstimatedWaitMinutes < 0 {
		return models.Tenant{}, models.NewValidationError("estimated wait must not be negative")
	}

	slug = normalizeSlug(slug)
	tenant, err := s.store.Tenants().GetBySlug(ctx, slug)
	if err != nil {
		return models.Tenant{}, err
	}

	if update.AcceptingOrders != nil {
		tenant.Settings.AcceptingOrders = *update.AcceptingOrders
	}
	if update.EstimatedWaitMinutes != nil {
		tenant.Settings.EstimatedWaitMinutes = *update.EstimatedWaitMinutes
	}

	if err := s.store.Tenants().UpdateSettings(ctx, tenant.ID, tenant.Settings); err != nil {
		return models.Tenant{}, err
	}
	s.invalidate(slug)

	s.logger.Info("Restaurant settings updated",
		"restaurant", slug,
		"accepting_orders", tenant.Settings.AcceptingOrders,
		"estimated_wait_minutes", tenant.Settings.EstimatedWaitMinutes)
	return tenant, nil
}

func (s *menuService) invalidate(slug string) {
	if s.cache != nil {
		s.cache.Remove(slug)
	}
}
