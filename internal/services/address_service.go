package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"go.uber.org/zap"
)

// AddressInput is the body of an add-address request.
type AddressInput struct {
	Phone     string `json:"phone" validate:"required,len=10,number"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Pincode   string `json:"pincode" validate:"required,len=6,number"`
	IsDefault bool   `json:"isDefault"`
}

// AddressUpdateInput is a partial address update.
type AddressUpdateInput struct {
	Phone     *string `json:"phone" validate:"omitempty,len=10,number"`
	Address   *string `json:"address" validate:"omitempty,min=1"`
	City      *string `json:"city" validate:"omitempty,min=1"`
	State     *string `json:"state" validate:"omitempty,min=1"`
	Pincode   *string `json:"pincode" validate:"omitempty,len=6,number"`
	IsDefault *bool   `json:"isDefault"`
}

// AddressService manages a user's address book and its single default.
type AddressService struct {
	repo         repositories.AddressRepository
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewAddressService creates a new AddressService.
func NewAddressService(repo repositories.AddressRepository, logger *zap.Logger, storeTimeout time.Duration) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &AddressService{repo: repo, logger: logger, storeTimeout: storeTimeout}
}

// ListAddresses returns the user's addresses, oldest first.
func (s *AddressService) ListAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to list addresses: %w", err))
	}
	return addresses, nil
}

// AddAddress stores a new address. The first address of a user becomes the
// default even when not requested.
func (s *AddressService) AddAddress(ctx context.Context, userID string, input AddressInput) (*models.Address, error) {
	input.Phone = strings.TrimSpace(input.Phone)
	input.Pincode = strings.TrimSpace(input.Pincode)
	if err := validateInput(input, "Invalid address"); err != nil {
		return nil, err
	}

	address := &models.Address{
		UserID:    userID,
		Phone:     input.Phone,
		Street:    strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Pincode:   input.Pincode,
		IsDefault: input.IsDefault,
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, addressError(fmt.Errorf("failed to add address: %w", err), "")
	}

	s.logger.Info("Address added", zap.String("user_id", userID), zap.String("address_id", address.ID), zap.Bool("default", address.IsDefault))
	return address, nil
}

// UpdateAddress applies a partial update. Setting isDefault clears the flag
// on the user's other addresses in the same unit of work.
func (s *AddressService) UpdateAddress(ctx context.Context, userID, id string, input AddressUpdateInput) (*models.Address, error) {
	if err := validateInput(input, "Invalid address"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	address, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, addressError(err, id)
	}

	if input.Phone != nil {
		address.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		address.Street = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		address.City = strings.TrimSpace(*input.City)
	}
	if input.State != nil {
		address.State = strings.TrimSpace(*input.State)
	}
	if input.Pincode != nil {
		address.Pincode = strings.TrimSpace(*input.Pincode)
	}
	if input.IsDefault != nil {
		address.IsDefault = *input.IsDefault
	}

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, addressError(err, id)
	}
	return address, nil
}

// SetDefaultAddress makes id the user's only default address.
func (s *AddressService) SetDefaultAddress(ctx context.Context, userID, id string) (*models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	address, err := s.repo.SetDefault(ctx, userID, id)
	if err != nil {
		return nil, addressError(err, id)
	}
	s.logger.Info("Default address changed", zap.String("user_id", userID), zap.String("address_id", id))
	return address, nil
}

// GetDefaultAddress returns the user's default address.
func (s *AddressService) GetDefaultAddress(ctx context.Context, userID string) (*models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	address, err := s.repo.GetDefault(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("no default address: %w", ErrNotFound)
		}
		return nil, storeError(err)
	}
	return address, nil
}

// DeleteAddress removes one of the user's addresses. Deleting the default
// leaves the user without one until another is chosen.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return addressError(err, id)
	}
	return nil
}

func addressError(err error, id string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("address %s: %w", id, ErrNotFound)
	case errors.Is(err, repositories.ErrDuplicate):
		// Another request made a different address the default meanwhile.
		return fmt.Errorf("default address changed concurrently, retry: %w", ErrConflict)
	}
	return storeError(err)
}
