package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Catalog is the provisioning file consumed by `orderdesk seed`.
type Catalog struct {
	Restaurants []CatalogRestaurant `yaml:"restaurants"`
}

type CatalogRestaurant struct {
	Slug       string                `yaml:"slug"`
	Name       string                `yaml:"name"`
	Active     *bool                 `yaml:"active"`
	Currency   string                `yaml:"currency"`
	Settings   models.TenantSettings `yaml:"settings"`
	Categories []CatalogCategory     `yaml:"categories"`
}

type CatalogCategory struct {
	Name     string           `yaml:"name"`
	Products []CatalogProduct `yaml:"products"`
}

type CatalogProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Available   *bool  `yaml:"available"`
}

type ProvisionResult struct {
	Restaurants int      `json:"restaurants"`
	Categories  int      `json:"categories"`
	Products    int      `json:"products"`
	Skipped     []string `json:"skipped,omitempty"`
}

func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	for i, r := range catalog.Restaurants {
		if strings.TrimSpace(r.Slug) == "" || strings.TrimSpace(r.Name) == "" {
			return Catalog{}, models.NewValidationError("restaurant #%d needs a slug and a name", i+1)
		}
	}
	return catalog, nil
}

// Provision creates every restaurant in the catalog that does not exist yet, with
// its categories and products, in one transaction. Existing slugs are skipped.
func Provision(ctx context.Context, store dal.Store, catalog Catalog, log *logger.Logger) (ProvisionResult, error) {
	log = log.WithComponent("provision")
	var result ProvisionResult

	err := store.InTx(ctx, func(tx dal.Store) error {
		result = ProvisionResult{}
		for _, r := range catalog.Restaurants {
			slug := normalizeSlug(r.Slug)

			_, err := tx.Tenants().GetBySlug(ctx, slug)
			if err == nil {
				result.Skipped = append(result.Skipped, slug)
				continue
			}
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}

			tenant := models.Tenant{
				Slug:     slug,
				Name:     r.Name,
				Active:   r.Active == nil || *r.Active,
				Currency: r.Currency,
				Settings: r.Settings,
			}
			if err := tx.Tenants().Create(ctx, &tenant); err != nil {
				return err
			}
			result.Restaurants++

			for ci, c := range r.Categories {
				category := models.Category{TenantID: tenant.ID, Name: c.Name, Position: ci + 1}
				if err := tx.Products().CreateCategory(ctx, &category); err != nil {
					return err
				}
				result.Categories++

				for pi, p := range c.Products {
					product := models.Product{
						TenantID:    tenant.ID,
						CategoryID:  category.ID,
						Name:        p.Name,
						Description: p.Description,
						Price:       p.Price,
						Available:   p.Available == nil || *p.Available,
						Position:    pi + 1,
					}
					if err := tx.Products().CreateProduct(ctx, &product); err != nil {
						return fmt.Errorf("product %q of %s: %w", p.Name, slug, err)
					}
					result.Products++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ProvisionResult{}, err
	}

	log.Info("Catalog provisioned",
		"restaurants", result.Restaurants,
		"categories", result.Categories,
		"products", result.Products,
		"skipped", len(result.Skipped))
	return result, nil
}
