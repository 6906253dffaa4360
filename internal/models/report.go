package models

import (
	"time"
)

// StatusCount - order count for one status
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// PopularItem - product ranked by ordered quantity, named as snapshotted on the orders
type PopularItem struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	OrderCount    int     `json:"order_count"`
	TotalQuantity int     `json:"total_quantity"`
	Percentage    float64 `json:"percentage,omitempty"`
}

// SummaryReport - For GET /restaurants/{slug}/reports/summary
type SummaryReport struct {
	TenantSlug       string        `json:"restaurant"`
	StartDate        time.Time     `json:"start_date,omitempty"`
	EndDate          time.Time     `json:"end_date,omitempty"`
	OrdersByStatus   []StatusCount `json:"orders_by_status"`
	TotalOrders      int           `json:"total_orders"`
	DeliveredRevenue int64         `json:"delivered_revenue"`
	PopularItems     []PopularItem `json:"popular_items"`
}

// ReportFilters - Common filters for reports
type ReportFilters struct {
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}
