package repositories

import (
	"context"

	"shopfront/internal/models"
)

// AddressRepository defines the interface for address book data access.
// Every lookup is scoped to the owning user.
//
// Create, Update and SetDefault keep at most one default address per user:
// clearing the other defaults and writing the target happen in one unit of
// work, so a failure leaves the previous default in place.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
	GetByID(ctx context.Context, userID, id string) (*models.Address, error)
	GetDefault(ctx context.Context, userID string) (*models.Address, error)
	// Create stores a new address. The user's first address always becomes
	// the default.
	Create(ctx context.Context, address *models.Address) error
	Update(ctx context.Context, address *models.Address) error
	SetDefault(ctx context.Context, userID, id string) (*models.Address, error)
	Delete(ctx context.Context, userID, id string) error
}
