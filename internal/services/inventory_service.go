package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultStoreTimeout   = 5 * time.Second
	defaultPublishTimeout = 2 * time.Second
)

// InventoryService owns per-size stock: purchases, admin overrides and the
// size update broadcast that follows each of them.
type InventoryService struct {
	repo           repositories.ProductRepository
	publisher      events.Publisher
	logger         *zap.Logger
	storeTimeout   time.Duration
	publishTimeout time.Duration
}

// InventoryOption customizes an InventoryService.
type InventoryOption func(*InventoryService)

// WithStoreTimeout bounds every storage call made by the service.
func WithStoreTimeout(d time.Duration) InventoryOption {
	return func(s *InventoryService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithPublishTimeout bounds a single size update broadcast.
func WithPublishTimeout(d time.Duration) InventoryOption {
	return func(s *InventoryService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewInventoryService creates a new InventoryService. A nil publisher drops
// every event.
func NewInventoryService(repo repositories.ProductRepository, publisher events.Publisher, logger *zap.Logger, opts ...InventoryOption) *InventoryService {
	if publisher == nil {
		publisher = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InventoryService{
		repo:           repo,
		publisher:      publisher,
		logger:         logger,
		storeTimeout:   defaultStoreTimeout,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSizes returns the current size list of a product.
func (s *InventoryService) ListSizes(ctx context.Context, productID string) ([]models.SizeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, productError(err, productID)
	}
	if product.Sizes == nil {
		return []models.SizeEntry{}, nil
	}
	return product.Sizes, nil
}

// Purchase removes quantity units of one size from stock. sizeName must
// match a stored size exactly, including case and whitespace. Concurrent
// purchases never drive a size below zero: the check and the decrement are a
// single storage operation.
func (s *InventoryService) Purchase(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	if sizeName == "" {
		return nil, invalid("size is required")
	}
	if quantity <= 0 {
		return nil, invalid("quantity must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	product, err := s.repo.DecrementSize(ctx, productID, sizeName, quantity)
	if err != nil {
		return nil, productError(err, productID)
	}

	s.logger.Info("Purchase completed",
		zap.String("product_id", productID),
		zap.String("size", sizeName),
		zap.Int("quantity", quantity),
		zap.Bool("out_of_stock", product.IsOutOfStock),
	)
	s.broadcast(ctx, product, sizeName)
	return product, nil
}

// SetSizeQuantity overwrites the stock of one size. The size must already
// exist on the product.
func (s *InventoryService) SetSizeQuantity(ctx context.Context, productID, sizeName string, quantity int) (*models.Product, error) {
	if sizeName == "" {
		return nil, invalid("sizeName is required")
	}
	if quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	product, err := s.repo.SetSizeQuantity(ctx, productID, sizeName, quantity)
	if errors.Is(err, repositories.ErrSizeNotFound) {
		return nil, fmt.Errorf("size %q of product %s: %w", sizeName, productID, ErrSizeNotFound)
	}
	if err != nil {
		return nil, productError(err, productID)
	}

	s.logger.Info("Size quantity updated",
		zap.String("product_id", productID),
		zap.String("size", sizeName),
		zap.Int("quantity", quantity),
	)
	s.broadcast(ctx, product, sizeName)
	return product, nil
}

// broadcast publishes the post-mutation size list. It outlives the request
// context and only logs failures: the mutation is already committed.
func (s *InventoryService) broadcast(ctx context.Context, product *models.Product, sizeName string) {
	update := events.SizesUpdate{
		ProductID:   product.ID,
		Sizes:       product.Sizes,
		UpdatedSize: events.UpdatedSize{Name: sizeName},
	}
	if idx := product.FindSize(sizeName); idx >= 0 {
		update.UpdatedSize.Quantity = product.Sizes[idx].Quantity
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, events.Topic(product.ID), update); err != nil {
		s.logger.Warn("Failed to publish size update",
			zap.String("product_id", product.ID),
			zap.String("size", sizeName),
			zap.Error(err),
		)
	}
}
