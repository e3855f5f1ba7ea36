package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/media"
	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Paragraphs is a product description. Clients may send a single string or
// a list of strings.
type Paragraphs []string

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (p *Paragraphs) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*p = Paragraphs{}
		} else {
			*p = Paragraphs{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("description must be a string or a list of strings")
	}
	*p = many
	return nil
}

// SizeInput is one size of a create or update request. Disabled is accepted
// for compatibility but always recomputed from quantity.
type SizeInput struct {
	Name     string `json:"name" validate:"required"`
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
	Disabled *bool  `json:"disabled"`
}

// CreateProductInput is the body of an add-product request.
type CreateProductInput struct {
	Title         string          `json:"title" validate:"required"`
	Brand         string          `json:"brand"`
	Image         string          `json:"image" validate:"required"`
	Thumbnails    []string        `json:"thumbnails"`
	Description   Paragraphs      `json:"description"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	OnSale        bool            `json:"onSale"`
	IsFeatured    bool            `json:"isFeatured"`
	Sizes         []SizeInput     `json:"sizes" validate:"omitempty,dive"`
}

// UpdateProductInput is a partial product update. Nil fields are left as
// they are; a non-nil Sizes replaces the whole size list.
type UpdateProductInput struct {
	Title         *string          `json:"title" validate:"omitempty,min=1"`
	Brand         *string          `json:"brand"`
	Image         *string          `json:"image" validate:"omitempty,min=1"`
	Thumbnails    []string         `json:"thumbnails"`
	Description   Paragraphs       `json:"description"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	SalePrice     *decimal.Decimal `json:"salePrice"`
	OnSale        *bool            `json:"onSale"`
	IsFeatured    *bool            `json:"isFeatured"`
	Sizes         []SizeInput      `json:"sizes" validate:"omitempty,dive"`
}

// ProductService handles business logic related to the product catalog.
type ProductService struct {
	repo         repositories.ProductRepository
	uploader     media.Uploader
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewProductService creates a new ProductService. A nil uploader keeps image
// references as submitted.
func NewProductService(repo repositories.ProductRepository, uploader media.Uploader, logger *zap.Logger, storeTimeout time.Duration) *ProductService {
	if uploader == nil {
		uploader = media.Passthrough{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &ProductService{
		repo:         repo,
		uploader:     uploader,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to list products: %w", err))
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, productError(err, id)
	}
	return product, nil
}

// CreateProduct uploads the product images and stores the new product.
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if err := validateInput(input, "Title and main image are required"); err != nil {
		return nil, err
	}
	sizes, err := buildSizes(input.Sizes)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)

	if err := s.ensureTitleFree(ctx, title, ""); err != nil {
		return nil, err
	}

	imageURL, err := s.uploader.Upload(ctx, input.Image, media.FolderProductMain)
	if err != nil {
		return nil, uploadError(err)
	}
	thumbnails := []string{imageURL}
	if len(input.Thumbnails) > 0 {
		thumbnails, err = s.uploadAll(ctx, input.Thumbnails, media.FolderProductThumbnails)
		if err != nil {
			return nil, uploadError(err)
		}
	}

	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		brand = models.DefaultBrand
	}
	if sizes == nil {
		sizes = models.DefaultSizes()
	}

	product := &models.Product{
		Title:         title,
		Brand:         brand,
		Image:         imageURL,
		Thumbnails:    datatypes.JSONSlice[string](thumbnails),
		Description:   datatypes.JSONSlice[string](nonNil(input.Description)),
		OriginalPrice: input.OriginalPrice,
		SalePrice:     input.SalePrice,
		OnSale:        input.OnSale,
		IsFeatured:    input.IsFeatured,
		Sizes:         sizes,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Create(storeCtx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("product with this title already exists: %w", ErrConflict)
		}
		return nil, storeError(fmt.Errorf("failed to create product: %w", err))
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("title", product.Title))
	return product, nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*models.Product, error) {
	if err := validateInput(input, "Invalid product update"); err != nil {
		return nil, err
	}
	sizes, err := buildSizes(input.Sizes)
	if err != nil {
		return nil, err
	}

	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		if title != product.Title {
			if err := s.ensureTitleFree(ctx, title, product.ID); err != nil {
				return nil, err
			}
		}
		product.Title = title
	}
	if input.Brand != nil {
		product.Brand = strings.TrimSpace(*input.Brand)
		if product.Brand == "" {
			product.Brand = models.DefaultBrand
		}
	}
	if input.Image != nil && *input.Image != product.Image {
		imageURL, err := s.uploader.Upload(ctx, *input.Image, media.FolderProducts)
		if err != nil {
			return nil, uploadError(err)
		}
		product.Image = imageURL
	}
	if input.Thumbnails != nil {
		product.Thumbnails = datatypes.JSONSlice[string](input.Thumbnails)
	}
	if input.Description != nil {
		product.Description = datatypes.JSONSlice[string](input.Description)
	}
	if input.OriginalPrice != nil {
		product.OriginalPrice = *input.OriginalPrice
	}
	if input.SalePrice != nil {
		product.SalePrice = *input.SalePrice
	}
	if input.OnSale != nil {
		product.OnSale = *input.OnSale
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if sizes != nil {
		product.Sizes = sizes
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Update(storeCtx, product, sizes != nil); err != nil {
		return nil, productError(err, id)
	}
	updated, err := s.repo.GetByID(storeCtx, id)
	if err != nil {
		return nil, productError(err, id)
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	return updated, nil
}

// DeleteProduct deletes a product and its sizes.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return productError(err, id)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *ProductService) ensureTitleFree(ctx context.Context, title, selfID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.repo.GetByTitle(ctx, title)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return storeError(fmt.Errorf("failed to check product title: %w", err))
	case existing.ID != selfID:
		return fmt.Errorf("product with this title already exists: %w", ErrConflict)
	}
	return nil
}

// uploadAll uploads every source concurrently and keeps the input order.
func (s *ProductService) uploadAll(ctx context.Context, sources []string, folder string) ([]string, error) {
	urls := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			url, err := s.uploader.Upload(gctx, src, folder)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// buildSizes converts request sizes into entries. It returns nil when no size
// list was sent and rejects repeated names.
func buildSizes(in []SizeInput) ([]models.SizeEntry, error) {
	if in == nil {
		return nil, nil
	}
	sizes := make([]models.SizeEntry, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, si := range in {
		name := strings.TrimSpace(si.Name)
		if name == "" {
			return nil, invalid("size name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, invalid("size %q is listed more than once", name)
		}
		seen[name] = struct{}{}
		sizes = append(sizes, models.SizeEntry{Name: name, Quantity: *si.Quantity})
	}
	return sizes, nil
}

func uploadError(err error) error {
	if errors.Is(err, media.ErrInvalidSource) {
		return &ValidationError{Message: err.Error()}
	}
	return fmt.Errorf("failed to upload image: %w", err)
}

func nonNil(p Paragraphs) []string {
	if p == nil {
		return []string{}
	}
	return p
}
