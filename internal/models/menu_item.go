package models

import (
	"time"
)

// TenantSettings is the typed form of the restaurant's settings blob.
type TenantSettings struct {
	AcceptingOrders      bool `json:"accepting_orders" yaml:"accepting_orders"`
	EstimatedWaitMinutes int  `json:"estimated_wait_minutes,omitempty" yaml:"estimated_wait_minutes"`
}

type Tenant struct {
	ID        int64          `json:"id"`
	Slug      string         `json:"slug"`
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Currency  string         `json:"currency"`
	Settings  TenantSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CheckAcceptingOrders reports why the tenant cannot take an order, if it cannot.
func (t Tenant) CheckAcceptingOrders() error {
	if !t.Active {
		return ErrTenantUnavailable
	}
	if !t.Settings.AcceptingOrders {
		return ErrTenantNotAccepting
	}
	return nil
}

type Category struct {
	ID       int64     `json:"id"`
	TenantID int64     `json:"tenant_id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Products []Product `json:"products,omitempty"`
}

// Product prices are integer minor currency units.
type Product struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Available   bool      `json:"available"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Menu struct {
	Tenant     Tenant     `json:"restaurant"`
	Categories []Category `json:"categories"`
}

// ProductUpdate carries the staff-editable product fields; nil means unchanged.
type ProductUpdate struct {
	Price     *int64 `json:"price,omitempty"`
	Available *bool  `json:"available,omitempty"`
}

type SettingsUpdate struct {
	AcceptingOrders      *bool `json:"accepting_orders,omitempty"`
	EstimatedWaitMinutes *int  `json:"estimated_wait_minutes,omitempty"`
}
