package models

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	NotificationOrderCreated       NotificationKind = "order.created"
	NotificationOrderStatusChanged NotificationKind = "order.status_changed"
)

// Notification is an outbox row. It is written after the order change commits and
// delivered asynchronously.
type Notification struct {
	ID            int64            `json:"id"`
	Kind          NotificationKind `json:"kind"`
	TenantID      int64            `json:"restaurant_id"`
	OrderID       int64            `json:"order_id"`
	Payload       json.RawMessage  `json:"payload"`
	Attempts      int              `json:"attempts"`
	NextAttemptAt time.Time        `json:"next_attempt_at"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
	FailedAt      *time.Time       `json:"failed_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// RestaurantRef identifies the tenant in outbound payloads.
type RestaurantRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// OrderCreatedPayload is sent to the restaurant's staff when a new order lands.
type OrderCreatedPayload struct {
	Restaurant RestaurantRef `json:"restaurant"`
	Order      *Order        `json:"order"`
}

// StatusChangedPayload is sent to the customer after a transition.
type StatusChangedPayload struct {
	Order  *Order `json:"order"`
	From   Status `json:"from"`
	To     Status `json:"to"`
	Reason string `json:"reason,omitempty"`
}
