package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"github.com/google/uuid"
)

const (
	// ReasonStaff tags transitions requested by restaurant staff
	ReasonStaff = "staff"
	// ReasonAutoExpired tags cancellations made by the reaper
	ReasonAutoExpired = "auto-expired"

	maxTokenAttempts = 3
	maxCASAttempts   = 3
)

// Notifier receives post-commit order events. Implementations queue the message and
// return; their errors never affect the order change.
type Notifier interface {
	OrderPlaced(ctx context.Context, tenant models.Tenant, order *models.Order) error
	StatusChanged(ctx context.Context, order *models.Order, from, to models.Status, reason string) error
}

type PlaceOrderRequest struct {
	TenantSlug string
	Customer   models.CustomerDetails
	Items      []models.CartLine

	// Total is whatever the client claimed. Any value is rejected.
	Total *int64
}

type TransitionRequest struct {
	TenantID int64
	OrderID  int64
	Status   string
	Reason   string

	// ExpectedStatus, when set, rejects the request unless the order is still in it.
	ExpectedStatus models.Status
}

type OrderService interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error)
	TransitionOrder(ctx context.Context, slug string, orderID int64, rawStatus, reason string) (*models.Order, error)
	Transition(ctx context.Context, req TransitionRequest) (*models.Order, error)
	GetOrderByToken(ctx context.Context, token string) (*models.Order, error)
	GetOrder(ctx context.Context, slug string, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, slug string, filters models.OrderFilters) ([]*models.Order, error)
	OrderHistory(ctx context.Context, slug string, id int64) ([]models.StatusEvent, error)
}

type OrderOption func(*orderService)

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen func() string) OrderOption {
	return func(s *orderService) { s.newToken = gen }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *orderService) { s.now = now }
}

type orderService struct {
	store    dal.Store
	notifier Notifier
	logger   *logger.Logger
	newToken func() string
	now      func() time.Time
}

func NewOrderService(store dal.Store, notifier Notifier, log *logger.Logger, opts ...OrderOption) OrderService {
	s := &orderService{
		store:    store,
		notifier: notifier,
		logger:   log.WithComponent("order_service"),
		newToken: NewToken,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewToken returns an opaque 32 character tracking token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PlaceOrder checks the tenant, then snapshots the cart, creates the order, adds
// the items and sets the total in one transaction. The new-order notification is
// queued only after commit.
func (s *orderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if req.Total != nil {
		return nil, models.NewValidationError("total is calculated by the restaurant and must not be sent")
	}
	if len(req.Items) == 0 {
		return nil, models.NewValidationError("order must contain at least one item")
	}

	tenant, err := s.store.Tenants().GetBySlug(ctx, normalizeSlug(req.TenantSlug))
	if err != nil {
		return nil, err
	}
	if err := tenant.CheckAcceptingOrders(); err != nil {
		s.logger.Warn("Order rejected", "restaurant", tenant.Slug, "reason", err.Error())
		return nil, err
	}

	var order *models.Order
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		order, err = s.placeInTx(ctx, tenant, req)
		if !errors.Is(err, dal.ErrTokenCollision) {
			break
		}
		s.logger.Warn("Order token collision, retrying", "restaurant", tenant.Slug, "attempt", attempt)
	}
	if err != nil {
		if models.KindOf(err) != "" {
			s.logger.Warn("Order rejected", "restaurant", tenant.Slug, "reason", err.Error())
			return nil, err
		}
		s.logger.Error("Failed to place order", "restaurant", tenant.Slug, "error", err)
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info("Order placed",
		"restaurant", tenant.Slug,
		"order_id", order.ID,
		"items", len(order.Items()),
		"total", order.Total())

	if s.notifier != nil {
		// The order is committed; a client disconnect must not drop its notification.
		if err := s.notifier.OrderPlaced(context.WithoutCancel(ctx), tenant, order); err != nil {
			s.logger.Error("Failed to queue new order notification", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (s *orderService) placeInTx(ctx context.Context, tenant models.Tenant, req PlaceOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(tx dal.Store) error {
		snapshots, err := BuildSnapshots(ctx, tx.Products(), tenant.ID, req.Items)
		if err != nil {
			return err
		}

		o, err := models.NewOrder(tenant.ID, s.newToken(), req.Customer)
		if err != nil {
			return err
		}
		o.CreatedAt = s.now().UTC()
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}

		if err := o.AddItems(snapshots); err != nil {
			return err
		}
		if err := tx.Orders().InsertItems(ctx, o.ID, o.Items()); err != nil {
			return err
		}

		o.RecomputeTotal()
		if err := o.Validate(); err != nil {
			return err
		}
		if err := tx.Orders().UpdateTotal(ctx, o.ID, o.Total()); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// TransitionOrder is the staff entry point: the order must belong to the restaurant.
func (s *orderService) TransitionOrder(ctx context.Context, slug string, orderID int64, rawStatus, reason string) (*models.Order, error) {
	tenant, err := s.store.Tenants().GetBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = ReasonStaff
	}
	return s.Transition(ctx, TransitionRequest{
		TenantID: tenant.ID,
		OrderID:  orderID,
		Status:   rawStatus,
		Reason:   reason,
	})
}

// Transition applies one validated status change. The write is a compare-and-swap
// on the status read in the same transaction, so two racing requests cannot both
// apply from the same state. A rejected request changes nothing and sends nothing.
func (s *orderService) Transition(ctx context.Context, req TransitionRequest) (*models.Order, error) {
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var (
		order *models.Order
		from  models.Status
	)
	err = s.store.InTx(ctx, func(tx dal.Store) error {
		for attempt := 1; attempt <= maxCASAttempts; attempt++ {
			current, err := tx.Orders().GetByID(ctx, req.TenantID, req.OrderID)
			if err != nil {
				return err
			}

			from = current.Status()
			if req.ExpectedStatus != "" && from != req.ExpectedStatus {
				return models.NewInvalidTransitionError(from, target)
			}
			if err := current.TransitionTo(target); err != nil {
				return err
			}

			now := s.now().UTC()
			applied, err := tx.Orders().CompareAndSetStatus(ctx, current.ID, from, target, now)
			if err != nil {
				return err
			}
			if !applied {
				// someone else moved the order; judge the request against the new state
				continue
			}
			current.UpdatedAt = now

			if err := tx.Orders().AddStatusEvent(ctx, models.StatusEvent{
				OrderID:   current.ID,
				From:      from,
				To:        target,
				Reason:    req.Reason,
				CreatedAt: now,
			}); err != nil {
				return err
			}

			order = current
			return nil
		}
		return fmt.Errorf("order %d kept changing while updating its status", req.OrderID)
	})
	if err != nil {
		if models.KindOf(err) != "" {
			s.logger.Warn("Status change rejected",
				"order_id", req.OrderID,
				"requested", req.Status,
				"reason", err.Error())
			return nil, err
		}
		s.logger.Error("Failed to change order status", "order_id", req.OrderID, "error", err)
		return nil, fmt.Errorf("failed to change order status: %w", err)
	}

	s.logger.Info("Order status changed",
		"order_id", order.ID,
		"from", from,
		"to", target,
		"reason", req.Reason)

	s.notifyStatusChanged(ctx, order, from, target, req.Reason)
	return order, nil
}

func (s *orderService) notifyStatusChanged(ctx context.Context, order *models.Order, from, to models.Status, reason string) {
	if s.notifier == nil {
		return
	}
	if !order.Customer.HasContactChannel() {
		s.logger.Debug("No contact channel, status notification skipped", "order_id", order.ID)
		return
	}
	if err := s.notifier.StatusChanged(context.WithoutCancel(ctx), order, from, to, reason); err != nil {
		s.logger.Error("Failed to queue status notification", "order_id", order.ID, "error", err)
	}
}

func (s *orderService) GetOrderByToken(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewNotFoundError("order not found")
	}
	return s.store.Orders().GetByToken(ctx, token)
}

func (s *orderService) GetOrder(ctx context.Context, slug string, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, models.NewValidationError("invalid order id")
	}
	tenant, err := s.store.Tenants().GetBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	return s.store.Orders().GetByID(ctx, tenant.ID, id)
}

func (s *orderService) ListOrders(ctx context.Context, slug string, filters models.OrderFilters) ([]*models.Order, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, models.NewValidationError("unknown order status %q", filters.Status)
	}
	tenant, err := s.store.Tenants().GetBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	return s.store.Orders().List(ctx, tenant.ID, filters)
}

func (s *orderService) OrderHistory(ctx context.Context, slug string, id int64) ([]models.StatusEvent, error) {
	order, err := s.GetOrder(ctx, slug, id)
	if err != nil {
		return nil, err
	}
	return s.store.Orders().ListStatusEvents(ctx, order.ID)
}
