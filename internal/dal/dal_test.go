package dal

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderdesk/internal/models"
	"orderdesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, Config{Driver: DialectSQLite, Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

type fixture struct {
	tenant    models.Tenant
	category  models.Category
	carne     models.Product
	humita    models.Product
	soldOut   models.Product
	otherShop models.Tenant
	foreign   models.Product
}

func seedFixture(t *testing.T, store Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture

	f.tenant = models.Tenant{Slug: "la-esquina", Name: "La Esquina", Active: true,
		Settings: models.TenantSettings{AcceptingOrders: true, EstimatedWaitMinutes: 30}}
	require.NoError(t, store.Tenants().Create(ctx, &f.tenant))

	f.category = models.Category{TenantID: f.tenant.ID, Name: "Empanadas", Position: 1}
	require.NoError(t, store.Products().CreateCategory(ctx, &f.category))

	f.carne = models.Product{TenantID: f.tenant.ID, CategoryID: f.category.ID, Name: "Carne", Price: 850, Available: true, Position: 1}
	f.humita = models.Product{TenantID: f.tenant.ID, CategoryID: f.category.ID, Name: "Humita", Price: 700, Available: true, Position: 2}
	f.soldOut = models.Product{TenantID: f.tenant.ID, CategoryID: f.category.ID, Name: "Caprese", Price: 750, Available: false, Position: 3}
	for _, p := range []*models.Product{&f.carne, &f.humita, &f.soldOut} {
		require.NoError(t, store.Products().CreateProduct(ctx, p))
	}

	f.otherShop = models.Tenant{Slug: "otro", Name: "Otro", Active: true, Settings: models.TenantSettings{AcceptingOrders: true}}
	require.NoError(t, store.Tenants().Create(ctx, &f.otherShop))
	otherCategory := models.Category{TenantID: f.otherShop.ID, Name: "Pizzas"}
	require.NoError(t, store.Products().CreateCategory(ctx, &otherCategory))
	f.foreign = models.Product{TenantID: f.otherShop.ID, CategoryID: otherCategory.ID, Name: "Muzza", Price: 5000, Available: true}
	require.NoError(t, store.Products().CreateProduct(ctx, &f.foreign))

	return f
}

func newPendingOrder(t *testing.T, tenantID int64, token string, items ...models.LineItem) *models.Order {
	t.Helper()
	order, err := models.NewOrder(tenantID, token, models.CustomerDetails{
		Name:          "Ana",
		Phone:         "1155550000",
		Address:       "Calle 1",
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	require.NoError(t, order.AddItems(items))
	return order
}

func persistOrder(t *testing.T, store Store, order *models.Order) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Orders().Create(ctx, order))
	require.NoError(t, store.Orders().InsertItems(ctx, order.ID, order.Items()))
	order.RecomputeTotal()
	require.NoError(t, store.Orders().UpdateTotal(ctx, order.ID, order.Total()))
}

func TestRebind(t *testing.T) {
	pg := NewRepository(nil, DialectPostgres)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)",
		pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"))

	lite := NewRepository(nil, DialectSQLite)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	version, err := ApplyMigrations(ctx, db.DB, db.Dialect())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	for _, table := range []string{"tenants", "categories", "products", "orders", "order_items", "order_status_events", "notifications"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestRollbackMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	version, err := RollbackMigration(ctx, db.DB, db.Dialect())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='notifications'").Scan(&name)
	assert.Error(t, err)

	version, err = ApplyMigrations(ctx, db.DB, db.Dialect())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestTenantRepository(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	got, err := store.Tenants().GetBySlug(ctx, "la-esquina")
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, got.ID)
	assert.True(t, got.Settings.AcceptingOrders)
	assert.Equal(t, 30, got.Settings.EstimatedWaitMinutes)
	assert.Equal(t, "ARS", got.Currency)

	require.NoError(t, store.Tenants().UpdateSettings(ctx, got.ID, models.TenantSettings{AcceptingOrders: false}))
	got, err = store.Tenants().GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.False(t, got.Settings.AcceptingOrders)

	_, err = store.Tenants().GetBySlug(ctx, "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	dup := models.Tenant{Slug: "la-esquina", Name: "Dup"}
	err = store.Tenants().Create(ctx, &dup)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestProductRepository_FindAvailableIsTenantScoped(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	p, err := store.Products().FindAvailable(ctx, f.tenant.ID, f.carne.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(850), p.Price)

	_, err = store.Products().FindAvailable(ctx, f.tenant.ID, f.soldOut.ID)
	assert.True(t, errors.Is(err, models.ErrProductUnavailable))

	_, err = store.Products().FindAvailable(ctx, f.tenant.ID, f.foreign.ID)
	require.Error(t, err)
	var domainErr *models.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, f.foreign.ID, domainErr.ProductID)

	_, err = store.Products().FindAvailable(ctx, f.tenant.ID, 9999)
	assert.True(t, errors.Is(err, models.ErrProductUnavailable))
}

func TestProductRepository_ListMenuAndUpdate(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	menu, err := store.Products().ListMenu(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	require.Len(t, menu[0].Products, 2)
	assert.Equal(t, "Carne", menu[0].Products[0].Name)
	assert.Equal(t, "Humita", menu[0].Products[1].Name)

	price := int64(900)
	available := false
	updated, err := store.Products().Update(ctx, f.tenant.ID, f.carne.ID, models.ProductUpdate{Price: &price, Available: &available})
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.Price)
	assert.False(t, updated.Available)

	negative := int64(-1)
	_, err = store.Products().Update(ctx, f.tenant.ID, f.humita.ID, models.ProductUpdate{Price: &negative})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = store.Products().Update(ctx, f.tenant.ID, f.foreign.ID, models.ProductUpdate{Price: &price})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = store.Products().CreateProduct(ctx, &models.Product{TenantID: f.tenant.ID, CategoryID: 9999, Name: "x"})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestOrderRepository_CreateAndFetch(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	order := newPendingOrder(t, f.tenant.ID, "tok-1",
		models.LineItem{ProductID: f.carne.ID, ProductName: "Carne", UnitPrice: 850, Quantity: 2, Notes: "sin sal"})
	persistOrder(t, store, order)
	assert.NotZero(t, order.ID)

	got, err := store.Orders().GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1700), got.Total())
	assert.Equal(t, models.StatusPending, got.Status())
	require.Len(t, got.Items(), 1)
	assert.Equal(t, "sin sal", got.Items()[0].Notes)

	change := int64(2000)
	withChange := newPendingOrder(t, f.tenant.ID, "tok-2",
		models.LineItem{ProductID: f.humita.ID, ProductName: "Humita", UnitPrice: 700, Quantity: 1})
	withChange.Customer.CashChangeFor = &change
	persistOrder(t, store, withChange)

	got, err = store.Orders().GetByID(ctx, f.tenant.ID, withChange.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Customer.CashChangeFor)
	assert.Equal(t, int64(2000), *got.Customer.CashChangeFor)

	_, err = store.Orders().GetByID(ctx, f.otherShop.ID, withChange.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = store.Orders().GetByToken(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	orders, err := store.Orders().List(ctx, f.tenant.ID, models.OrderFilters{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, withChange.ID, orders[0].ID, "newest first")
	assert.Len(t, orders[1].Items(), 1)

	n, err := store.Orders().Count(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOrderRepository_TokenCollision(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	f := seedFixture(t, store)

	first := newPendingOrder(t, f.tenant.ID, "same")
	require.NoError(t, store.Orders().Create(context.Background(), first))

	second := newPendingOrder(t, f.tenant.ID, "same")
	err := store.Orders().Create(context.Background(), second)
	assert.ErrorIs(t, err, ErrTokenCollision)
}

func TestOrderRepository_CompareAndSetStatus(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	order := newPendingOrder(t, f.tenant.ID, "cas",
		models.LineItem{ProductID: f.carne.ID, ProductName: "Carne", UnitPrice: 850, Quantity: 1})
	persistOrder(t, store, order)

	ok, err := store.Orders().CompareAndSetStatus(ctx, order.ID, models.StatusPending, models.StatusConfirmed, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Orders().CompareAndSetStatus(ctx, order.ID, models.StatusPending, models.StatusCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "stale expected status must not apply")

	got, err := store.Orders().GetByID(ctx, f.tenant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status())

	require.NoError(t, store.Orders().AddStatusEvent(ctx, models.StatusEvent{
		OrderID: order.ID, From: models.StatusPending, To: models.StatusConfirmed, Reason: "staff",
	}))
	events, err := store.Orders().ListStatusEvents(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusConfirmed, events[0].To)
	assert.Equal(t, "staff", events[0].Reason)
}

func TestOrderRepository_ListStalePending(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)
	now := time.Now().UTC()

	old := newPendingOrder(t, f.tenant.ID, "old")
	old.CreatedAt = now.Add(-3 * time.Hour)
	require.NoError(t, store.Orders().Create(ctx, old))

	fresh := newPendingOrder(t, f.tenant.ID, "fresh")
	fresh.CreatedAt = now.Add(-1 * time.Hour)
	require.NoError(t, store.Orders().Create(ctx, fresh))

	oldConfirmed := newPendingOrder(t, f.tenant.ID, "old-confirmed")
	oldConfirmed.CreatedAt = now.Add(-5 * time.Hour)
	require.NoError(t, store.Orders().Create(ctx, oldConfirmed))
	_, err := store.Orders().CompareAndSetStatus(ctx, oldConfirmed.ID, models.StatusPending, models.StatusConfirmed, now)
	require.NoError(t, err)

	stale, err := store.Orders().ListStalePending(ctx, now.Add(-2*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
	assert.Equal(t, f.tenant.ID, stale[0].TenantID)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Store) error {
		order := newPendingOrder(t, f.tenant.ID, "rolled-back")
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.InTx(ctx, func(nested Store) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.Orders().Count(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = store.InTx(ctx, func(tx Store) error {
		return tx.Orders().Create(ctx, newPendingOrder(t, f.tenant.ID, "kept"))
	})
	require.NoError(t, err)
	n, err = store.Orders().Count(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTenantDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	order := newPendingOrder(t, f.tenant.ID, "gone",
		models.LineItem{ProductID: f.carne.ID, ProductName: "Carne", UnitPrice: 850, Quantity: 1})
	persistOrder(t, store, order)

	require.NoError(t, store.Tenants().Delete(ctx, f.tenant.ID))

	var items int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM order_items").Scan(&items))
	assert.Equal(t, 0, items)

	_, err := store.Products().GetByID(ctx, f.tenant.ID, f.carne.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestNotificationRepository(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	now := time.Now().UTC()

	due := &models.Notification{Kind: models.NotificationOrderCreated, TenantID: 1, OrderID: 10, Payload: []byte(`{"a":1}`)}
	later := &models.Notification{Kind: models.NotificationOrderStatusChanged, TenantID: 1, OrderID: 10,
		Payload: []byte(`{}`), NextAttemptAt: now.Add(time.Hour)}
	require.NoError(t, store.Notifications().Insert(ctx, due))
	require.NoError(t, store.Notifications().Insert(ctx, later))

	list, err := store.Notifications().ListDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)
	assert.JSONEq(t, `{"a":1}`, string(list[0].Payload))

	require.NoError(t, store.Notifications().MarkRetry(ctx, due.ID, 1, now.Add(time.Minute), "timeout"))
	list, err = store.Notifications().ListDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.Notifications().MarkDelivered(ctx, due.ID, now))
	require.NoError(t, store.Notifications().MarkFailed(ctx, later.ID, 8, now, "gave up"))

	all, err := store.Notifications().ListByOrder(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotNil(t, all[0].DeliveredAt)
	assert.Equal(t, 2, all[0].Attempts)
	assert.NotNil(t, all[1].FailedAt)
	assert.Equal(t, "gave up", all[1].LastError)

	list, err = store.Notifications().ListDue(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReportRepository(t *testing.T) {
	db := openTestDB(t)
	store := db.Store()
	ctx := context.Background()
	f := seedFixture(t, store)

	delivered := newPendingOrder(t, f.tenant.ID, "r1",
		models.LineItem{ProductID: f.carne.ID, ProductName: "Carne", UnitPrice: 850, Quantity: 3})
	persistOrder(t, store, delivered)
	for _, step := range [][2]models.Status{
		{models.StatusPending, models.StatusConfirmed},
		{models.StatusConfirmed, models.StatusPreparing},
		{models.StatusPreparing, models.StatusReady},
		{models.StatusReady, models.StatusDelivered},
	} {
		ok, err := store.Orders().CompareAndSetStatus(ctx, delivered.ID, step[0], step[1], time.Now())
		require.NoError(t, err)
		require.True(t, ok)
	}

	pending := newPendingOrder(t, f.tenant.ID, "r2",
		models.LineItem{ProductID: f.humita.ID, ProductName: "Humita", UnitPrice: 700, Quantity: 1},
		models.LineItem{ProductID: f.carne.ID, ProductName: "Carne", UnitPrice: 850, Quantity: 1})
	persistOrder(t, store, pending)

	cancelled := newPendingOrder(t, f.tenant.ID, "r3",
		models.LineItem{ProductID: f.humita.ID, ProductName: "Humita", UnitPrice: 700, Quantity: 10})
	persistOrder(t, store, cancelled)
	_, err := store.Orders().CompareAndSetStatus(ctx, cancelled.ID, models.StatusPending, models.StatusCancelled, time.Now())
	require.NoError(t, err)

	counts, err := store.Reports().CountByStatus(ctx, f.tenant.ID, models.ReportFilters{})
	require.NoError(t, err)
	byStatus := map[models.Status]int{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	assert.Equal(t, map[models.Status]int{models.StatusDelivered: 1, models.StatusPending: 1, models.StatusCancelled: 1}, byStatus)

	revenue, err := store.Reports().DeliveredRevenue(ctx, f.tenant.ID, models.ReportFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2550), revenue)

	popular, err := store.Reports().PopularItems(ctx, f.tenant.ID, models.ReportFilters{Limit: 5})
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "Carne", popular[0].Name)
	assert.Equal(t, 4, popular[0].TotalQuantity)
	assert.Equal(t, 2, popular[0].OrderCount)
	assert.Equal(t, 1, popular[1].TotalQuantity, "cancelled orders are not counted")

	future := models.ReportFilters{StartDate: time.Now().Add(time.Hour)}
	revenue, err = store.Reports().DeliveredRevenue(ctx, f.tenant.ID, future)
	require.NoError(t, err)
	assert.Equal(t, int64(0), revenue)
}
