package service

import (
	"context"
	"testing"

	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
restaurants:
  - slug: El-Buen-Sabor
    name: El Buen Sabor
    settings:
      accepting_orders: true
      estimated_wait_minutes: 25
    categories:
      - name: Pizzas
        products:
          - name: Muzzarella
            price: 9000
          - name: Fugazzeta
            price: 9500
            available: false
      - name: Bebidas
        products:
          - name: Agua
            price: 1500
  - slug: la-esquina
    name: La Esquina
`

func TestParseCatalog_RequiresSlugAndName(t *testing.T) {
	_, err := ParseCatalog([]byte("restaurants:\n  - name: Sin slug\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ParseCatalog([]byte("restaurants: ["))
	require.Error(t, err)
}

func TestProvision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	catalog, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	result, err := Provision(ctx, env.store, catalog, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restaurants)
	assert.Equal(t, 2, result.Categories)
	assert.Equal(t, 3, result.Products)
	assert.Equal(t, []string{"la-esquina"}, result.Skipped)

	tenant, err := env.store.Tenants().GetBySlug(ctx, "el-buen-sabor")
	require.NoError(t, err)
	assert.True(t, tenant.Active)
	assert.Equal(t, 25, tenant.Settings.EstimatedWaitMinutes)

	menu, err := env.store.Products().ListMenu(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Pizzas", menu[0].Name)
	require.Len(t, menu[0].Products, 1, "unavailable products stay off the menu")
	assert.Equal(t, "Muzzarella", menu[0].Products[0].Name)

	again, err := Provision(ctx, env.store, catalog, logger.NewNop())
	require.NoError(t, err)
	assert.Zero(t, again.Restaurants)
	assert.ElementsMatch(t, []string{"el-buen-sabor", "la-esquina"}, again.Skipped)
}

func TestProvision_RollsBackOnBadProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	catalog := Catalog{Restaurants: []CatalogRestaurant{{
		Slug: "rota", Name: "Rota",
		Categories: []CatalogCategory{{Name: "X", Products: []CatalogProduct{{Name: "Gratis", Price: -1}}}},
	}}}

	_, err := Provision(ctx, env.store, catalog, logger.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.store.Tenants().GetBySlug(ctx, "rota")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
