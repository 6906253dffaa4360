package dal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/models"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetBySlug(ctx context.Context, slug string) (models.Tenant, error)
	GetByID(ctx context.Context, id int64) (models.Tenant, error)
	List(ctx context.Context) ([]models.Tenant, error)
	UpdateSettings(ctx context.Context, id int64, settings models.TenantSettings) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type tenantRepository struct {
	*Repository
}

const tenantColumns = `id, slug, name, active, currency, settings, created_at, updated_at`

func (r *tenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode tenant settings: %w", err)
	}
	if tenant.Currency == "" {
		tenant.Currency = "ARS"
	}
	now := time.Now().UTC()

	err = r.queryRow(ctx, `
		INSERT INTO tenants (slug, name, active, currency, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		tenant.Slug, tenant.Name, tenant.Active, tenant.Currency, string(settings), now, now,
	).Scan(&tenant.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("restaurant slug %q is already taken", tenant.Slug)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	return nil
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (models.Tenant, error) {
	tenant, err := scanTenant(r.queryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tenant{}, models.NewNotFoundError("restaurant %q not found", slug)
	}
	return tenant, err
}

func (r *tenantRepository) GetByID(ctx context.Context, id int64) (models.Tenant, error) {
	tenant, err := scanTenant(r.queryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tenant{}, models.NewNotFoundError("restaurant %d not found", id)
	}
	return tenant, err
}

func (r *tenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	rows, err := r.query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tenants, nil
}

func (r *tenantRepository) UpdateSettings(ctx context.Context, id int64, settings models.TenantSettings) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode tenant settings: %w", err)
	}
	result, err := r.exec(ctx, `UPDATE tenants SET settings = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant settings: %w", err)
	}
	return requireOneRow(result, "restaurant", id)
}

func (r *tenantRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.exec(ctx, `UPDATE tenants SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return requireOneRow(result, "restaurant", id)
}

// Delete removes the tenant; categories, products and orders go with it.
func (r *tenantRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.exec(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return requireOneRow(result, "restaurant", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row rowScanner) (models.Tenant, error) {
	var (
		tenant   models.Tenant
		settings string
	)
	err := row.Scan(
		&tenant.ID,
		&tenant.Slug,
		&tenant.Name,
		&tenant.Active,
		&tenant.Currency,
		&settings,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Tenant{}, err
		}
		return models.Tenant{}, fmt.Errorf("failed to scan tenant: %w", err)
	}
	if settings != "" {
		if err := json.Unmarshal([]byte(settings), &tenant.Settings); err != nil {
			return models.Tenant{}, fmt.Errorf("failed to decode settings of tenant %d: %w", tenant.ID, err)
		}
	}
	return tenant, nil
}

func requireOneRow(result sql.Result, entity string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return models.NewNotFoundError("%s %d not found", entity, id)
	}
	return nil
}
