package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orderdesk/internal/models"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
	MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id int64, attempts int, at time.Time, lastErr string) error
	ListByOrder(ctx context.Context, orderID int64) ([]models.Notification, error)
}

type notificationRepository struct {
	*Repository
}

const notificationColumns = `id, kind, tenant_id, order_id, payload, attempts, next_attempt_at,
	delivered_at, failed_at, last_error, created_at`

func (r *notificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = now
	}
	err := r.queryRow(ctx, `
		INSERT INTO notifications (kind, tenant_id, order_id, payload, attempts, next_attempt_at, last_error, created_at)
		VALUES (?, ?, ?, ?, 0, ?, '', ?)
		RETURNING id`,
		n.Kind, n.TenantID, n.OrderID, string(n.Payload), n.NextAttemptAt.UTC(), now,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	n.CreatedAt = now
	return nil
}

// ListDue returns undelivered, not given up notifications whose next attempt is due.
func (r *notificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE delivered_at IS NULL AND failed_at IS NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`, now.UTC(), limit)
}

func (r *notificationRepository) ListByOrder(ctx context.Context, orderID int64) ([]models.Notification, error) {
	return r.list(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE order_id = ? ORDER BY id`, orderID)
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	result, err := r.exec(ctx, `
		UPDATE notifications SET delivered_at = ?, attempts = attempts + 1, last_error = ''
		WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return requireOneRow(result, "notification", id)
}

func (r *notificationRepository) MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	result, err := r.exec(ctx, `
		UPDATE notifications SET attempts = ?, next_attempt_at = ?, last_error = ?
		WHERE id = ?`, attempts, next.UTC(), lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}
	return requireOneRow(result, "notification", id)
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id int64, attempts int, at time.Time, lastErr string) error {
	result, err := r.exec(ctx, `
		UPDATE notifications SET attempts = ?, failed_at = ?, last_error = ?
		WHERE id = ?`, attempts, at.UTC(), lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return requireOneRow(result, "notification", id)
}

func (r *notificationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Notification, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n           models.Notification
			payload     string
			deliveredAt sql.NullTime
			failedAt    sql.NullTime
		)
		if err := rows.Scan(
			&n.ID,
			&n.Kind,
			&n.TenantID,
			&n.OrderID,
			&payload,
			&n.Attempts,
			&n.NextAttemptAt,
			&deliveredAt,
			&failedAt,
			&n.LastError,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Payload = []byte(payload)
		if deliveredAt.Valid {
			t := deliveredAt.Time
			n.DeliveredAt = &t
		}
		if failedAt.Valid {
			t := failedAt.Time
			n.FailedAt = &t
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
