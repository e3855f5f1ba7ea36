package repositories

import (
	"context"

	"shopfront/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// DecrementSize and SetSizeQuantity must be atomic with respect to each other
// and to concurrent callers: a decrement never drives a quantity below zero.
// Both keep SizeEntry.Disabled and Product.IsOutOfStock consistent with the
// stored quantities.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByTitle(ctx context.Context, title string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update saves the scalar fields of product. When replaceSizes is set the
	// stored size list is replaced by product.Sizes.
	Update(ctx context.Context, product *models.Product, replaceSizes bool) error
	Delete(ctx context.Context, id string) error
	// DecrementSize and SetSizeQuantity return the product as stored right
	// after the mutation.
	DecrementSize(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error)
	SetSizeQuantity(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error)
}
