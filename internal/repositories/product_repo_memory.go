package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopfront/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// A single mutex makes every size mutation a check-and-set.
type MemoryProductRepository struct {
	products map[string]*models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]*models.Product),
	}
}

// GetAll returns all products, oldest first.
func (r *MemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, *p.Clone())
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].CreatedAt.Before(productList[j].CreatedAt)
	})
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return product.Clone(), nil
}

// GetByTitle returns a product by its title.
func (r *MemoryProductRepository) GetByTitle(ctx context.Context, title string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Title == title {
			return p.Clone(), nil
		}
	}
	return nil, fmt.Errorf("product with title %q: %w", title, ErrNotFound)
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.titleTaken(product.Title, "") {
		return fmt.Errorf("product title %q: %w", product.Title, ErrDuplicate)
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.RefreshStockFlags()
	r.products[product.ID] = product.Clone()
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(ctx context.Context, product *models.Product, replaceSizes bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, ErrNotFound)
	}
	if r.titleTaken(product.Title, product.ID) {
		return fmt.Errorf("product title %q: %w", product.Title, ErrDuplicate)
	}

	updated := product.Clone()
	if !replaceSizes {
		updated.Sizes = append([]models.SizeEntry(nil), stored.Sizes...)
	}
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now()
	updated.RefreshStockFlags()
	r.products[product.ID] = updated
	product.IsOutOfStock = updated.IsOutOfStock
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// DecrementSize subtracts quantity from the named size if enough is left.
func (r *MemoryProductRepository) DecrementSize(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, idx, err := r.locate(productID, sizeName)
	if err != nil {
		return nil, err
	}
	if product.Sizes[idx].Quantity < quantity {
		return nil, fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrInsufficientStock)
	}
	product.Sizes[idx].Quantity -= quantity
	product.UpdatedAt = time.Now()
	product.RefreshStockFlags()
	return product.Clone(), nil
}

// SetSizeQuantity overwrites the quantity of the named size.
func (r *MemoryProductRepository) SetSizeQuantity(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, idx, err := r.locate(productID, sizeName)
	if err != nil {
		return nil, err
	}
	product.Sizes[idx].Quantity = quantity
	product.UpdatedAt = time.Now()
	product.RefreshStockFlags()
	return product.Clone(), nil
}

// locate must be called with the write lock held.
func (r *MemoryProductRepository) locate(productID, sizeName string) (*models.Product, int, error) {
	product, ok := r.products[productID]
	if !ok {
		return nil, -1, fmt.Errorf("product with ID %s: %w", productID, ErrNotFound)
	}
	idx := product.FindSize(sizeName)
	if idx == -1 {
		return nil, -1, fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrSizeNotFound)
	}
	return product, idx, nil
}

func (r *MemoryProductRepository) titleTaken(title, exceptID string) bool {
	for id, p := range r.products {
		if id != exceptID && p.Title == title {
			return true
		}
	}
	return false
}
