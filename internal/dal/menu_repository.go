package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/models"
)

// ProductRepository covers a tenant's catalog: categories and their products.
// Every lookup is scoped to the tenant.
type ProductRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateProduct(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, tenantID, id int64) (models.Product, error)
	FindAvailable(ctx context.Context, tenantID, id int64) (models.Product, error)
	ListMenu(ctx context.Context, tenantID int64) ([]models.Category, error)
	Update(ctx context.Context, tenantID, id int64, update models.ProductUpdate) (models.Product, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

type productRepository struct {
	*Repository
}

const productColumns = `id, tenant_id, category_id, name, description, price, available, position, created_at, updated_at`

func (r *productRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	err := r.queryRow(ctx, `
		INSERT INTO categories (tenant_id, name, position)
		VALUES (?, ?, ?)
		RETURNING id`,
		category.TenantID, category.Name, category.Position,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Price < 0 {
		return models.NewValidationError("price must not be negative")
	}

	// the category must belong to the same tenant
	var categoryTenant int64
	err := r.queryRow(ctx, `SELECT tenant_id FROM categories WHERE id = ?`, product.CategoryID).Scan(&categoryTenant)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && categoryTenant != product.TenantID) {
		return models.NewNotFoundError("category %d not found", product.CategoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}

	now := time.Now().UTC()
	err = r.queryRow(ctx, `
		INSERT INTO products (tenant_id, category_id, name, description, price, available, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		product.TenantID, product.CategoryID, product.Name, product.Description,
		product.Price, product.Available, product.Position, now, now,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, tenantID, id int64) (models.Product, error) {
	product, err := scanProduct(r.queryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND tenant_id = ?`, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, models.NewNotFoundError("product %d not found", id)
	}
	return product, err
}

// FindAvailable resolves a product the tenant currently sells. Anything else,
// including another tenant's product, is ProductUnavailable.
func (r *productRepository) FindAvailable(ctx context.Context, tenantID, id int64) (models.Product, error) {
	product, err := scanProduct(r.queryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND tenant_id = ? AND available = ?`,
		id, tenantID, true))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, models.NewProductUnavailableError(id)
	}
	return product, err
}

// ListMenu returns the tenant's categories by position, each with its available
// products by position. Empty categories are left out.
func (r *productRepository) ListMenu(ctx context.Context, tenantID int64) ([]models.Category, error) {
	rows, err := r.query(ctx, `
		SELECT
			c.id, c.tenant_id, c.name, c.position,
			p.id, p.tenant_id, p.category_id, p.name, p.description, p.price, p.available, p.position, p.created_at, p.updated_at
		FROM categories c
		JOIN products p ON p.category_id = c.id
		WHERE c.tenant_id = ? AND p.available = ?
		ORDER BY c.position, c.id, p.position, p.id`,
		tenantID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var (
			category models.Category
			product  models.Product
		)
		if err := rows.Scan(
			&category.ID, &category.TenantID, &category.Name, &category.Position,
			&product.ID, &product.TenantID, &product.CategoryID, &product.Name, &product.Description,
			&product.Price, &product.Available, &product.Position, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}

		if n := len(categories); n == 0 || categories[n-1].ID != category.ID {
			categories = append(categories, category)
		}
		last := &categories[len(categories)-1]
		last.Products = append(last.Products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

// Update changes price and/or availability. Existing order items keep their snapshot.
func (r *productRepository) Update(ctx context.Context, tenantID, id int64, update models.ProductUpdate) (models.Product, error) {
	product, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return models.Product{}, err
	}

	if update.Price != nil {
		if *update.Price < 0 {
			return models.Product{}, models.NewValidationError("price must not be negative")
		}
		product.Price = *update.Price
	}
	if update.Available != nil {
		product.Available = *update.Available
	}
	product.UpdatedAt = time.Now().UTC()

	_, err = r.exec(ctx, `
		UPDATE products
		SET price = ?, available = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		product.Price, product.Available, product.UpdatedAt, id, tenantID)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Delete(ctx context.Context, tenantID, id int64) error {
	result, err := r.exec(ctx, `DELETE FROM products WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireOneRow(result, "product", id)
}

func scanProduct(row rowScanner) (models.Product, error) {
	var product models.Product
	err := row.Scan(
		&product.ID,
		&product.TenantID,
		&product.CategoryID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Available,
		&product.Position,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, err
		}
		return models.Product{}, fmt.Errorf("failed to scan product: %w", err)
	}
	return product, nil
}
