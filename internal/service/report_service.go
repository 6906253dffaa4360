package service

import (
	"context"

	"orderdesk/internal/dal"
	"orderdesk/internal/models"
)

type ReportService interface {
	Summary(ctx context.Context, slug string, filters models.ReportFilters) (*models.SummaryReport, error)
}

type reportService struct {
	store dal.Store
}

func NewReportService(store dal.Store) ReportService {
	return &reportService{store: store}
}

func (s *reportService) Summary(ctx context.Context, slug string, filters models.ReportFilters) (*models.SummaryReport, error) {
	if !filters.StartDate.IsZero() && !filters.EndDate.IsZero() && filters.StartDate.After(filters.EndDate) {
		return nil, models.NewValidationError("start date must be before end date")
	}

	tenant, err := s.store.Tenants().GetBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		return nil, err
	}

	reports := s.store.Reports()
	counts, err := reports.CountByStatus(ctx, tenant.ID, filters)
	if err != nil {
		return nil, err
	}
	revenue, err := reports.DeliveredRevenue(ctx, tenant.ID, filters)
	if err != nil {
		return nil, err
	}
	items, err := reports.PopularItems(ctx, tenant.ID, filters)
	if err != nil {
		return nil, err
	}

	totalOrders := 0
	for _, c := range counts {
		totalOrders += c.Count
	}

	// Calculate total quantity for percentage calculation
	totalQuantity := 0
	for _, item := range items {
		totalQuantity += item.TotalQuantity
	}
	if totalQuantity > 0 {
		for i := range items {
			items[i].Percentage = float64(items[i].TotalQuantity) / float64(totalQuantity) * 100
		}
	}

	if counts == nil {
		counts = []models.StatusCount{}
	}
	if items == nil {
		items = []models.PopularItem{}
	}

	return &models.SummaryReport{
		TenantSlug:       tenant.Slug,
		StartDate:        filters.StartDate,
		EndDate:          filters.EndDate,
		OrdersByStatus:   counts,
		TotalOrders:      totalOrders,
		DeliveredRevenue: revenue,
		PopularItems:     items,
	}, nil
}
