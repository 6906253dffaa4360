package dal

import (
	"context"
	"fmt"
	"strings"

	"orderdesk/internal/models"
)

type ReportRepository interface {
	CountByStatus(ctx context.Context, tenantID int64, filters models.ReportFilters) ([]models.StatusCount, error)
	DeliveredRevenue(ctx context.Context, tenantID int64, filters models.ReportFilters) (int64, error)
	PopularItems(ctx context.Context, tenantID int64, filters models.ReportFilters) ([]models.PopularItem, error)
}

type reportRepository struct {
	*Repository
}

// orderScope builds the WHERE clause shared by the reports.
func orderScope(alias string, tenantID int64, filters models.ReportFilters) (string, []interface{}) {
	whereClauses := []string{alias + "tenant_id = ?"}
	args := []interface{}{tenantID}

	if !filters.StartDate.IsZero() {
		whereClauses = append(whereClauses, alias+"created_at >= ?")
		args = append(args, filters.StartDate.UTC())
	}
	if !filters.EndDate.IsZero() {
		whereClauses = append(whereClauses, alias+"created_at <= ?")
		args = append(args, filters.EndDate.UTC())
	}

	return " WHERE " + strings.Join(whereClauses, " AND "), args
}

func (r *reportRepository) CountByStatus(ctx context.Context, tenantID int64, filters models.ReportFilters) ([]models.StatusCount, error) {
	where, args := orderScope("", tenantID, filters)
	rows, err := r.query(ctx, `
		SELECT status, COUNT(*)
		FROM orders`+where+`
		GROUP BY status
		ORDER BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	var counts []models.StatusCount
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

func (r *reportRepository) DeliveredRevenue(ctx context.Context, tenantID int64, filters models.ReportFilters) (int64, error) {
	where, args := orderScope("", tenantID, filters)
	args = append(args, models.StatusDelivered)

	var revenue int64
	err := r.queryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM orders`+where+` AND status = ?`, args...).Scan(&revenue)
	if err != nil {
		return 0, fmt.Errorf("failed to get delivered revenue: %w", err)
	}
	return revenue, nil
}

// PopularItems ranks products by ordered quantity across non-cancelled orders.
func (r *reportRepository) PopularItems(ctx context.Context, tenantID int64, filters models.ReportFilters) ([]models.PopularItem, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := orderScope("o.", tenantID, filters)
	args = append(args, models.StatusCancelled, limit)

	rows, err := r.query(ctx, `
		SELECT
			oi.product_id,
			MAX(oi.product_name) AS name,
			COUNT(DISTINCT oi.order_id) AS order_count,
			SUM(oi.quantity) AS total_quantity
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id`+where+` AND o.status <> ?
		GROUP BY oi.product_id
		ORDER BY total_quantity DESC, oi.product_id
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular items: %w", err)
	}
	defer rows.Close()

	var popularItems []models.PopularItem
	for rows.Next() {
		var item models.PopularItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.OrderCount, &item.TotalQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan popular item: %w", err)
		}
		popularItems = append(popularItems, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return popularItems, nil
}
