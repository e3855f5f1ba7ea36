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

// MemoryAddressRepository is an in-memory implementation of AddressRepository.
type MemoryAddressRepository struct {
	addresses map[string]models.Address
	mu        sync.RWMutex
}

// NewMemoryAddressRepository creates a new instance of MemoryAddressRepository.
func NewMemoryAddressRepository() *MemoryAddressRepository {
	return &MemoryAddressRepository{
		addresses: make(map[string]models.Address),
	}
}

// ListByUser returns the user's addresses, oldest first.
func (r *MemoryAddressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Address, 0)
	for _, a := range r.addresses {
		if a.UserID == userID {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// GetByID returns one of the user's addresses.
func (r *MemoryAddressRepository) GetByID(ctx context.Context, userID, id string) (*models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("address %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

// GetDefault returns the user's default address.
func (r *MemoryAddressRepository) GetDefault(ctx context.Context, userID string) (*models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.addresses {
		if a.UserID == userID && a.IsDefault {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("default address of user %s: %w", userID, ErrNotFound)
}

// Create adds a new address.
func (r *MemoryAddressRepository) Create(ctx context.Context, address *models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if address.IsDefault {
		r.clearDefaults(address.UserID, "")
	} else {
		address.IsDefault = r.countFor(address.UserID) == 0
	}
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	now := time.Now()
	address.CreatedAt = now
	address.UpdatedAt = now
	r.addresses[address.ID] = *address
	return nil
}

// Update overwrites the editable fields of an existing address.
func (r *MemoryAddressRepository) Update(ctx context.Context, address *models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.addresses[address.ID]
	if !ok || stored.UserID != address.UserID {
		return fmt.Errorf("address %s not found for update: %w", address.ID, ErrNotFound)
	}
	if address.IsDefault {
		r.clearDefaults(address.UserID, address.ID)
	}
	address.CreatedAt = stored.CreatedAt
	address.UpdatedAt = time.Now()
	r.addresses[address.ID] = *address
	return nil
}

// SetDefault makes the address the user's only default.
func (r *MemoryAddressRepository) SetDefault(ctx context.Context, userID, id string) (*models.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("address %s: %w", id, ErrNotFound)
	}
	r.clearDefaults(userID, id)
	a.IsDefault = true
	a.UpdatedAt = time.Now()
	r.addresses[id] = a
	return &a, nil
}

// Delete removes one of the user's addresses.
func (r *MemoryAddressRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("address %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.addresses, id)
	return nil
}

func (r *MemoryAddressRepository) clearDefaults(userID, exceptID string) {
	for id, a := range r.addresses {
		if a.UserID == userID && id != exceptID && a.IsDefault {
			a.IsDefault = false
			r.addresses[id] = a
		}
	}
}

func (r *MemoryAddressRepository) countFor(userID string) int {
	n := 0
	for _, a := range r.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n
}
