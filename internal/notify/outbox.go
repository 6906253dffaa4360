package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"
)

// Outbox queues notifications as rows for the Dispatcher to deliver. It satisfies
// service.Notifier.
type Outbox struct {
	store  dal.Store
	logger *logger.Logger
}

func NewOutbox(store dal.Store, log *logger.Logger) *Outbox {
	return &Outbox{store: store, logger: log.WithComponent("outbox")}
}

// Enqueue stores one notification due immediately.
func (o *Outbox) Enqueue(ctx context.Context, kind models.NotificationKind, tenantID, orderID int64, payload interface{}) (*models.Notification, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	n := &models.Notification{
		Kind:     kind,
		TenantID: tenantID,
		OrderID:  orderID,
		Payload:  body,
	}
	if err := o.store.Notifications().Insert(ctx, n); err != nil {
		return nil, err
	}

	o.logger.Debug("Notification queued", "id", n.ID, "kind", kind, "order_id", orderID)
	return n, nil
}

func (o *Outbox) OrderPlaced(ctx context.Context, tenant models.Tenant, order *models.Order) error {
	_, err := o.Enqueue(ctx, models.NotificationOrderCreated, tenant.ID, order.ID, models.OrderCreatedPayload{
		Restaurant: models.RestaurantRef{ID: tenant.ID, Slug: tenant.Slug, Name: tenant.Name},
		Order:      order,
	})
	return err
}

func (o *Outbox) StatusChanged(ctx context.Context, order *models.Order, from, to models.Status, reason string) error {
	_, err := o.Enqueue(ctx, models.NotificationOrderStatusChanged, order.TenantID, order.ID, models.StatusChangedPayload{
		Order:  order,
		From:   from,
		To:     to,
		Reason: reason,
	})
	return err
}
