package service

import (
	"context"

	"orderdesk/internal/models"
)

// ProductFinder resolves a product the tenant currently sells, or fails with
// ProductUnavailable.
type ProductFinder interface {
	FindAvailable(ctx context.Context, tenantID, productID int64) (models.Product, error)
}

// BuildSnapshots turns a cart into line item snapshots in cart order. It copies the
// current name and price of each product and stops at the first bad line.
func BuildSnapshots(ctx context.Context, finder ProductFinder, tenantID int64, cart []models.CartLine) ([]models.LineItem, error) {
	snapshots := make([]models.LineItem, 0, len(cart))

	for _, line := range cart {
		product, err := finder.FindAvailable(ctx, tenantID, line.ProductID)
		if err != nil {
			return nil, err
		}

		quantity := models.CoerceQuantity(line.Quantity)
		if quantity <= 0 {
			return nil, models.NewInvalidQuantityError(line.ProductID)
		}

		snapshots = append(snapshots, models.LineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    quantity,
			Notes:       line.Notes,
		})
	}

	return snapshots, nil
}
