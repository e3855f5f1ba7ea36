package repositories

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAddressRepository is a GORM implementation of AddressRepository.
type GORMAddressRepository struct {
	db *gorm.DB
}

// NewGORMAddressRepository creates a new instance of GORMAddressRepository.
func NewGORMAddressRepository(db *gorm.DB) *GORMAddressRepository {
	return &GORMAddressRepository{
		db: db,
	}
}

// ListByUser returns the user's addresses, oldest first.
func (r *GORMAddressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	var addresses []models.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses of user %s: %w", userID, err)
	}
	return addresses, nil
}

// GetByID returns one of the user's addresses.
func (r *GORMAddressRepository) GetByID(ctx context.Context, userID, id string) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get address %s: %w", id, translate(err))
	}
	return &address, nil
}

// GetDefault returns the user's default address.
func (r *GORMAddressRepository) GetDefault(ctx context.Context, userID string) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "user_id = ? AND is_default = ?", userID, true).Error; err != nil {
		return nil, fmt.Errorf("failed to get default address of user %s: %w", userID, translate(err))
	}
	return &address, nil
}

// Create stores a new address, moving the default flag when needed.
func (r *GORMAddressRepository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefaults(tx, address.UserID, ""); err != nil {
				return err
			}
		} else {
			var count int64
			if err := tx.Model(&models.Address{}).Where("user_id = ?", address.UserID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count addresses of user %s: %w", address.UserID, err)
			}
			address.IsDefault = count == 0
		}
		if err := tx.Create(address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", translate(err))
		}
		return nil
	})
}

// Update overwrites the editable fields of an existing address.
func (r *GORMAddressRepository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefaults(tx, address.UserID, address.ID); err != nil {
				return err
			}
		}
		address.UpdatedAt = time.Now()
		res := tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", address.ID, address.UserID).
			Select("phone", "address", "city", "state", "pincode", "is_default", "updated_at").
			Updates(address)
		if res.Error != nil {
			return fmt.Errorf("failed to update address %s: %w", address.ID, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("address %s not found for update: %w", address.ID, ErrNotFound)
		}
		return nil
	})
}

// SetDefault makes the address the user's only default.
func (r *GORMAddressRepository) SetDefault(ctx context.Context, userID, id string) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&address, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return fmt.Errorf("failed to get address %s: %w", id, translate(err))
		}
		if err := clearDefaults(tx, userID, id); err != nil {
			return err
		}
		address.IsDefault = true
		address.UpdatedAt = time.Now()
		if err := tx.Model(&address).Select("is_default", "updated_at").Updates(&address).Error; err != nil {
			return fmt.Errorf("failed to set default address %s: %w", id, translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// Delete removes one of the user's addresses.
func (r *GORMAddressRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete address: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("address %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// clearDefaults unsets is_default on the user's addresses except exceptID.
func clearDefaults(tx *gorm.DB, userID, exceptID string) error {
	q := tx.Model(&models.Address{}).Where("user_id = ? AND is_default = ?", userID, true)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Update("is_default", false).Error; err != nil {
		return fmt.Errorf("failed to clear default addresses of user %s: %w", userID, err)
	}
	return nil
}
