package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func sizesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// GetAll retrieves all products with their sizes.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Sizes", sizesInOrder).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Sizes", sizesInOrder).First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, translate(err))
	}
	return &product, nil
}

// GetByTitle retrieves a single product by its unique title.
func (r *GORMProductRepository) GetByTitle(ctx context.Context, title string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Sizes", sizesInOrder).First(&product, "title = ?", title).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by title %q: %w", title, translate(err))
	}
	return &product, nil
}

// Create inserts the product together with its sizes.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.RefreshStockFlags()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update saves the product's scalar fields and, when asked, its size list.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product, replaceSizes bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, product.ID); err != nil {
			return err
		}

		product.UpdatedAt = time.Now()
		res := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Select("title", "brand", "image", "thumbnails", "description",
				"original_price", "sale_price", "on_sale", "is_featured", "updated_at").
			Updates(product)
		if res.Error != nil {
			return fmt.Errorf("failed to update product: %w", translate(res.Error))
		}

		if replaceSizes {
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.SizeEntry{}).Error; err != nil {
				return fmt.Errorf("failed to clear sizes of product %s: %w", product.ID, err)
			}
			product.RefreshStockFlags()
			if len(product.Sizes) > 0 {
				for i := range product.Sizes {
					product.Sizes[i].ID = 0
					product.Sizes[i].ProductID = product.ID
				}
				if err := tx.Create(&product.Sizes).Error; err != nil {
					return fmt.Errorf("failed to store sizes of product %s: %w", product.ID, translate(err))
				}
			}
		}

		return refreshOutOfStock(tx, product.ID)
	})
}

// Delete removes a product and its sizes.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.SizeEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete sizes of product %s: %w", id, err)
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DecrementSize subtracts quantity from the named size in a single
// conditional UPDATE, so the stored quantity can never go negative.
func (r *GORMProductRepository) DecrementSize(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID); err != nil {
			return err
		}

		res := tx.Model(&models.SizeEntry{}).
			Where("product_id = ? AND name = ? AND quantity >= ?", productID, sizeName, quantity).
			Updates(map[string]interface{}{
				"quantity": gorm.Expr("quantity - ?", quantity),
				"disabled": gorm.Expr("(quantity = ?)", quantity),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to decrement size %q of product %s: %w", sizeName, productID, res.Error)
		}
		if res.RowsAffected == 0 {
			exists, err := sizeExists(tx, productID, sizeName)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrSizeNotFound)
			}
			return fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrInsufficientStock)
		}

		if err := refreshOutOfStock(tx, productID); err != nil {
			return err
		}
		return reload(tx, productID, &product)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SetSizeQuantity overwrites the quantity of the named size.
func (r *GORMProductRepository) SetSizeQuantity(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID); err != nil {
			return err
		}

		res := tx.Model(&models.SizeEntry{}).
			Where("product_id = ? AND name = ?", productID, sizeName).
			Updates(map[string]interface{}{
				"quantity": quantity,
				"disabled": quantity == 0,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to set size %q of product %s: %w", sizeName, productID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrSizeNotFound)
		}

		if err := refreshOutOfStock(tx, productID); err != nil {
			return err
		}
		return reload(tx, productID, &product)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func reload(tx *gorm.DB, productID string, product *models.Product) error {
	if err := tx.Preload("Sizes", sizesInOrder).First(product, "id = ?", productID).Error; err != nil {
		return fmt.Errorf("failed to reload product %s: %w", productID, translate(err))
	}
	return nil
}

// lockProduct takes a row lock on the product for the rest of the
// transaction. SQLite has no row locks and serializes writers instead.
func lockProduct(tx *gorm.DB, productID string) error {
	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product with ID %s: %w", productID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock product %s: %w", productID, err)
	}
	return nil
}

func sizeExists(tx *gorm.DB, productID, sizeName string) (bool, error) {
	var count int64
	if err := tx.Model(&models.SizeEntry{}).
		Where("product_id = ? AND name = ?", productID, sizeName).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up size %q of product %s: %w", sizeName, productID, err)
	}
	return count > 0, nil
}

// refreshOutOfStock derives products.is_out_of_stock from the stored sizes.
func refreshOutOfStock(tx *gorm.DB, productID string) error {
	var inStock int64
	if err := tx.Model(&models.SizeEntry{}).
		Where("product_id = ? AND quantity > 0", productID).
		Count(&inStock).Error; err != nil {
		return fmt.Errorf("failed to count stock of product %s: %w", productID, err)
	}
	err := tx.Model(&models.Product{}).Where("id = ?", productID).
		Updates(map[string]interface{}{
			"is_out_of_stock": inStock == 0,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to refresh stock flag of product %s: %w", productID, err)
	}
	return nil
}
