package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
restaurants:
  - slug: la-esquina
    name: La Esquina
    settings:
      accepting_orders: true
    categories:
      - name: Empanadas
        products:
          - name: Carne
            price: 850
          - name: Humita
            price: 700
          - name: Caprese
            price: 750
            available: false
  - slug: cerrado
    name: Cerrado
    active: false
`

type testServer struct {
	handler http.Handler
	store   dal.Store
	tenant  models.Tenant
}

type failingHealth struct{}

func (failingHealth) HealthCheck(ctx context.Context) error { return errors.New("down") }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	db, err := dal.Open(ctx, dal.Config{Driver: dal.DialectSQLite, Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	store := db.Store()

	catalog, err := service.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	_, err = service.Provision(ctx, store, catalog, log)
	require.NoError(t, err)

	tenant, err := store.Tenants().GetBySlug(ctx, "la-esquina")
	require.NoError(t, err)

	orders := service.NewOrderService(store, nil, log)
	router := NewRouter(Handlers{
		Orders:  NewOrderHandler(orders, log),
		Menu:    NewMenuHandler(service.NewMenuService(store, 0, log), log),
		Reports: NewReportHandler(service.NewReportService(store), log),
		Health:  db,
	}, log)

	return &testServer{handler: router, store: store, tenant: tenant}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const validOrder = `{
	"customer_name": "Ana",
	"customer_phone": "1155550000",
	"customer_address": "Calle 1",
	"payment_method": "cash",
	"items": [{"product_id": 1, "quantity": 2}, {"product_id": 2, "quantity": "1"}]
}`

func (s *testServer) placeOrder(t *testing.T) map[string]interface{} {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/restaurants/la-esquina/orders", validOrder)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestPlaceOrder_Created(t *testing.T) {
	s := newTestServer(t)

	order := s.placeOrder(t)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, float64(2400), order["total"])
	assert.Len(t, order["token"], 32)
	assert.Len(t, order["items"], 2)
	assert.ElementsMatch(t, []interface{}{"confirmed", "cancelled"}, order["allowed_transitions"])
}

func TestPlaceOrder_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		slug     string
		body     string
		wantCode int
		wantKind string
	}{
		{
			name:     "malformed json",
			slug:     "la-esquina",
			body:     `{"customer_name": `,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "client total",
			slug:     "la-esquina",
			body:     `{"customer_name":"Ana","customer_address":"x","payment_method":"cash","items":[{"product_id":1,"quantity":1}],"total":1}`,
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "validation_error",
		},
		{
			name:     "unavailable product",
			slug:     "la-esquina",
			body:     `{"customer_name":"Ana","customer_address":"x","payment_method":"cash","items":[{"product_id":3,"quantity":1}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "product_unavailable",
		},
		{
			name:     "zero quantity",
			slug:     "la-esquina",
			body:     `{"customer_name":"Ana","customer_address":"x","payment_method":"cash","items":[{"product_id":1,"quantity":0}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "invalid_quantity",
		},
		{
			name:     "unknown restaurant",
			slug:     "nadie",
			body:     validOrder,
			wantCode: http.StatusNotFound,
			wantKind: "not_found",
		},
		{
			name:     "inactive restaurant",
			slug:     "cerrado",
			body:     validOrder,
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "tenant_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/restaurants/"+tt.slug+"/orders", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, body["kind"])
			}
		})
	}

	n, err := s.store.Orders().Count(context.Background(), s.tenant.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlaceOrder_UnavailableNamesProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/restaurants/la-esquina/orders",
		`{"customer_name":"Ana","customer_address":"x","payment_method":"cash","items":[{"product_id":1,"quantity":1},{"product_id":3,"quantity":1}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["product_id"])
}

func TestTrackOrder(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t)

	rec := s.do(t, http.MethodGet, "/api/v1/track/"+order["token"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order["id"], decode(t, rec)["id"])

	rec = s.do(t, http.MethodGet, "/api/v1/track/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t)
	path := "/api/v1/restaurants/la-esquina/orders/" + jsonID(order) + "/status"

	rec := s.do(t, http.MethodPatch, path, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	rec = s.do(t, http.MethodPatch, path, `{"status":"delivered"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid_transition", body["kind"])
	assert.Equal(t, "confirmed", body["from"])
	assert.Equal(t, "delivered", body["to"])

	rec = s.do(t, http.MethodPatch, path, `{"status":"lost"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["kind"])

	rec = s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/orders/abc/status", `{"status":"ready"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/orders/"+jsonID(order)+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.StatusEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusConfirmed, events[0].To)
	assert.Equal(t, service.ReasonStaff, events[0].Reason)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	first := s.placeOrder(t)
	s.placeOrder(t)
	s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/orders/"+jsonID(first)+"/status", `{"status":"cancelled"}`)

	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/orders?status=cancelled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	require.Len(t, cancelled, 1)
	assert.Equal(t, first["id"], cancelled[0]["id"])
	assert.Empty(t, cancelled[0]["allowed_transitions"])

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/orders?status=ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/orders?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMenuEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/menu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var menu models.Menu
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menu))
	require.Len(t, menu.Categories, 1)
	assert.Len(t, menu.Categories[0].Products, 2)

	rec = s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/products/1", `{"price": 900}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(900), decode(t, rec)["price"])

	rec = s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/products/1", `{"price": -5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/products/1", `{"colour": "red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/restaurants/la-esquina/settings", `{"accepting_orders": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/restaurants/la-esquina/orders", validOrder)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "tenant_not_accepting", decode(t, rec)["kind"])

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/cerrado/menu", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReportSummary(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t)
	path := "/api/v1/restaurants/la-esquina/orders/" + jsonID(order) + "/status"
	for _, status := range []string{"confirmed", "preparing", "ready", "delivered"} {
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, path, `{"status":"`+status+`"}`).Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/reports/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.SummaryReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(2400), report.DeliveredRevenue)
	assert.Equal(t, 1, report.TotalOrders)
	require.NotEmpty(t, report.PopularItems)
	assert.Equal(t, "Carne", report.PopularItems[0].Name)

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/reports/summary?startDate=2025-02-01&endDate=2025-01-01", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/la-esquina/reports/summary?startDate=yesterday", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	log := logger.NewNop()
	down := NewRouter(Handlers{Health: failingHealth{}}, log)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(models.NewNotFoundError("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(models.ErrIllegalState))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(models.NewInvalidTransitionError(models.StatusReady, models.StatusPending)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("connection reset")))
}

func jsonID(order map[string]interface{}) string {
	return strconv.FormatInt(int64(order["id"].(float64)), 10)
}
