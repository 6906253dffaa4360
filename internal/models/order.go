package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentTransfer
}

// CustomerDetails is the contact and delivery part of an order. Immutable after creation.
type CustomerDetails struct {
	Name          string        `json:"customer_name"`
	Phone         string        `json:"customer_phone,omitempty"`
	Email         string        `json:"customer_email,omitempty"`
	Address       string        `json:"customer_address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CashChangeFor *int64        `json:"cash_change_for,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

func (c CustomerDetails) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customer name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return NewValidationError("customer address is required")
	}
	if !c.PaymentMethod.Valid() {
		return NewValidationError("payment method must be %q or %q", PaymentCash, PaymentTransfer)
	}
	if c.CashChangeFor != nil {
		if c.PaymentMethod != PaymentCash {
			return NewValidationError("cash change can only be requested for cash payments")
		}
		if *c.CashChangeFor < 0 {
			return NewValidationError("cash change amount cannot be negative")
		}
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return NewValidationError("customer email is malformed")
	}
	return nil
}

// HasContactChannel reports whether status updates can reach the customer.
func (c CustomerDetails) HasContactChannel() bool {
	return strings.TrimSpace(c.Email) != "" || strings.TrimSpace(c.Phone) != ""
}

// LineItem is a snapshot of a product taken when the order was placed.
// ProductID is a weak reference: the product may later change or disappear.
type LineItem struct {
	ID          int64  `json:"id,omitempty"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	type plain LineItem
	return json.Marshal(struct {
		plain
		Subtotal int64 `json:"subtotal"`
	}{plain(li), li.Subtotal()})
}

// Order is the order aggregate. Status, items and total are only reachable through
// methods so the total always equals the sum of the item subtotals.
type Order struct {
	ID        int64
	TenantID  int64
	Token     string
	Customer  CustomerDetails
	CreatedAt time.Time
	UpdatedAt time.Time

	status Status
	items  []LineItem
	total  int64
}

// NewOrder creates a pending order with no items and a zero total.
func NewOrder(tenantID int64, token string, customer CustomerDetails) (*Order, error) {
	if tenantID <= 0 {
		return nil, NewValidationError("restaurant is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, NewValidationError("order token is required")
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Address = strings.TrimSpace(customer.Address)

	return &Order{
		TenantID: tenantID,
		Token:    token,
		Customer: customer,
		status:   StatusPending,
	}, nil
}

// RestoreOrder rebuilds an order read from storage. A stored total that disagrees
// with the items is reported as corruption rather than silently fixed.
func RestoreOrder(base Order, status Status, items []LineItem, storedTotal int64) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("order %d has unknown status %q", base.ID, status)
	}
	o := base
	o.status = status
	o.items = append([]LineItem(nil), items...)
	o.RecomputeTotal()
	if o.total != storedTotal {
		return nil, fmt.Errorf("order %d: stored total %d does not match item subtotals %d", base.ID, storedTotal, o.total)
	}
	return &o, nil
}

func (o *Order) Status() Status { return o.status }

func (o *Order) Total() int64 { return o.total }

func (o *Order) Items() []LineItem {
	return append([]LineItem(nil), o.items...)
}

// AddItems appends snapshots. Contents are frozen once the order leaves pending.
func (o *Order) AddItems(items []LineItem) error {
	if o.status != StatusPending {
		return &Error{
			Kind:    KindIllegalState,
			Message: fmt.Sprintf("items cannot be added to a %s order", o.status),
			From:    o.status,
		}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return NewInvalidQuantityError(item.ProductID)
		}
		if item.UnitPrice < 0 {
			return NewValidationError("unit price for product %d cannot be negative", item.ProductID)
		}
	}
	var total int64
	for _, item := range append(o.Items(), items...) {
		if item.UnitPrice > 0 && int64(item.Quantity) > math.MaxInt64/item.UnitPrice {
			return NewValidationError("line total for product %d is too large", item.ProductID)
		}
		sub := item.Subtotal()
		if total > math.MaxInt64-sub {
			return NewValidationError("order total is too large")
		}
		total += sub
	}
	o.items = append(o.items, items...)
	return nil
}

func (o *Order) RecomputeTotal() {
	var total int64
	for _, item := range o.items {
		total += item.Subtotal()
	}
	o.total = total
}

func (o *Order) CanTransitionTo(next Status) bool {
	return CanTransition(o.status, next)
}

func (o *Order) AllowedTransitions() []Status {
	return AllowedTransitions(o.status)
}

// TransitionTo moves the in-memory status; persisting it is the caller's job.
func (o *Order) TransitionTo(next Status) error {
	if !o.CanTransitionTo(next) {
		return NewInvalidTransitionError(o.status, next)
	}
	o.status = next
	return nil
}

func (o *Order) Validate() error {
	if err := o.Customer.Validate(); err != nil {
		return err
	}
	if o.total < 0 {
		return NewValidationError("order total cannot be negative")
	}
	return nil
}

func (o *Order) MarshalJSON() ([]byte, error) {
	items := o.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(struct {
		ID       int64  `json:"id"`
		TenantID int64  `json:"restaurant_id"`
		Token    string `json:"token"`
		CustomerDetails
		Status             Status     `json:"status"`
		Total              int64      `json:"total"`
		Items              []LineItem `json:"items"`
		AllowedTransitions []Status   `json:"allowed_transitions"`
		CreatedAt          time.Time  `json:"created_at"`
		UpdatedAt          time.Time  `json:"updated_at"`
	}{
		ID:                 o.ID,
		TenantID:           o.TenantID,
		Token:              o.Token,
		CustomerDetails:    o.Customer,
		Status:             o.status,
		Total:              o.total,
		Items:              items,
		AllowedTransitions: o.AllowedTransitions(),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	})
}

// CartLine is one requested line as received from the client. Quantity is raw
// external input and is coerced by the snapshot builder.
type CartLine struct {
	ProductID int64       `json:"product_id"`
	Quantity  interface{} `json:"quantity"`
	Notes     string      `json:"notes,omitempty"`
}

type OrderFilters struct {
	Status Status
	Limit  int
}

// StatusEvent records one applied transition.
type StatusEvent struct {
	OrderID   int64     `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
