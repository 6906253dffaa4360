package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/models"
)

const defaultListLimit = 100

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	InsertItems(ctx context.Context, orderID int64, items []models.LineItem) error
	UpdateTotal(ctx context.Context, orderID int64, total int64) error
	GetByID(ctx context.Context, tenantID, id int64) (*models.Order, error)
	GetByToken(ctx context.Context, token string) (*models.Order, error)
	List(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]*models.Order, error)
	Count(ctx context.Context, tenantID int64) (int, error)
	CompareAndSetStatus(ctx context.Context, id int64, from, to models.Status, at time.Time) (bool, error)
	AddStatusEvent(ctx context.Context, event models.StatusEvent) error
	ListStatusEvents(ctx context.Context, orderID int64) ([]models.StatusEvent, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]StaleOrder, error)
}

// StaleOrder identifies a pending order older than the reaper cutoff.
type StaleOrder struct {
	ID        int64
	TenantID  int64
	CreatedAt time.Time
}

type orderRepository struct {
	*Repository
}

const orderColumns = `id, tenant_id, token, customer_name, customer_phone, customer_email, customer_address,
	payment_method, cash_change_for, notes, status, total, created_at, updated_at`

// Create inserts the order row with the aggregate's current status and total.
// A taken token is reported as ErrTokenCollision.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	createdAt := order.CreatedAt.UTC()
	if order.CreatedAt.IsZero() {
		createdAt = now
	}

	var changeFor sql.NullInt64
	if order.Customer.CashChangeFor != nil {
		changeFor = sql.NullInt64{Int64: *order.Customer.CashChangeFor, Valid: true}
	}

	err := r.queryRow(ctx, `
		INSERT INTO orders (tenant_id, token, customer_name, customer_phone, customer_email, customer_address,
			payment_method, cash_change_for, notes, status, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		order.TenantID, order.Token, order.Customer.Name, order.Customer.Phone, order.Customer.Email,
		order.Customer.Address, order.Customer.PaymentMethod, changeFor, order.Customer.Notes,
		order.Status(), order.Total(), createdAt, createdAt,
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenCollision
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	order.CreatedAt = createdAt
	order.UpdatedAt = createdAt
	return nil
}

func (r *orderRepository) InsertItems(ctx context.Context, orderID int64, items []models.LineItem) error {
	for _, item := range items {
		_, err := r.exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, subtotal, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.Subtotal(), item.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to add order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) UpdateTotal(ctx context.Context, orderID int64, total int64) error {
	result, err := r.exec(ctx, `UPDATE orders SET total = ? WHERE id = ?`, total, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return requireOneRow(result, "order", orderID)
}

func (r *orderRepository) GetByID(ctx context.Context, tenantID, id int64) (*models.Order, error) {
	base, status, total, err := scanOrderRow(r.queryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ? AND tenant_id = ?`, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return r.restore(ctx, base, status, total)
}

func (r *orderRepository) GetByToken(ctx context.Context, token string) (*models.Order, error) {
	base, status, total, err := scanOrderRow(r.queryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, err
	}
	return r.restore(ctx, base, status, total)
}

func (r *orderRepository) restore(ctx context.Context, base models.Order, status models.Status, total int64) (*models.Order, error) {
	itemsByOrder, err := r.loadItems(ctx, []int64{base.ID})
	if err != nil {
		return nil, err
	}
	return models.RestoreOrder(base, status, itemsByOrder[base.ID], total)
}

// List returns the tenant's orders newest first, optionally filtered by status.
func (r *orderRepository) List(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, filters.Status)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	type row struct {
		base   models.Order
		status models.Status
		total  int64
	}

	// read and close the order rows before loading items
	fetched, err := func() ([]row, error) {
		rows, err := r.query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		defer rows.Close()

		var out []row
		for rows.Next() {
			base, status, total, err := scanOrderRow(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, row{base, status, total})
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}
		return out, nil
	}()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(fetched))
	for _, f := range fetched {
		ids = append(ids, f.base.ID)
	}
	itemsByOrder, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(fetched))
	for _, f := range fetched {
		order, err := models.RestoreOrder(f.base, f.status, itemsByOrder[f.base.ID], f.total)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]models.LineItem, error) {
	itemsByOrder := make(map[int64][]models.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return itemsByOrder, nil
	}

	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := r.query(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, notes
		FROM order_items
		WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY order_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    models.LineItem
			orderID int64
		)
		if err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		itemsByOrder[orderID] = append(itemsByOrder[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning order items: %w", err)
	}

	return itemsByOrder, nil
}

func (r *orderRepository) Count(ctx context.Context, tenantID int64) (int, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM orders WHERE tenant_id = ?`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// CompareAndSetStatus moves the order from one status to another only if it is
// still in the expected status. It reports whether the row changed.
func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to models.Status, at time.Time) (bool, error) {
	result, err := r.exec(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, at.UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *orderRepository) AddStatusEvent(ctx context.Context, event models.StatusEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.exec(ctx, `
		INSERT INTO order_status_events (order_id, from_status, to_status, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		event.OrderID, event.From, event.To, event.Reason, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record status event: %w", err)
	}
	return nil
}

func (r *orderRepository) ListStatusEvents(ctx context.Context, orderID int64) ([]models.StatusEvent, error) {
	rows, err := r.query(ctx, `
		SELECT order_id, from_status, to_status, reason, created_at
		FROM order_status_events
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status events: %w", err)
	}
	defer rows.Close()

	var events []models.StatusEvent
	for rows.Next() {
		var event models.StatusEvent
		if err := rows.Scan(&event.OrderID, &event.From, &event.To, &event.Reason, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// ListStalePending returns pending orders created before cutoff, oldest first.
func (r *orderRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]StaleOrder, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.query(ctx, `
		SELECT id, tenant_id, created_at
		FROM orders
		WHERE status = ? AND created_at < ?
		ORDER BY created_at, id
		LIMIT ?`,
		models.StatusPending, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}
	defer rows.Close()

	var stale []StaleOrder
	for rows.Next() {
		var s StaleOrder
		if err := rows.Scan(&s.ID, &s.TenantID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stale order: %w", err)
		}
		stale = append(stale, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return stale, nil
}

func scanOrderRow(row rowScanner) (models.Order, models.Status, int64, error) {
	var (
		order     models.Order
		status    models.Status
		total     int64
		changeFor sql.NullInt64
	)
	err := row.Scan(
		&order.ID,
		&order.TenantID,
		&order.Token,
		&order.Customer.Name,
		&order.Customer.Phone,
		&order.Customer.Email,
		&order.Customer.Address,
		&order.Customer.PaymentMethod,
		&changeFor,
		&order.Customer.Notes,
		&status,
		&total,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, "", 0, err
		}
		return models.Order{}, "", 0, fmt.Errorf("failed to scan order: %w", err)
	}
	if changeFor.Valid {
		v := changeFor.Int64
		order.Customer.CashChangeFor = &v
	}
	return order, status, total, nil
}
