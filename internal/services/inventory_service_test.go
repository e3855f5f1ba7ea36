package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"shopfront/internal/events"
	"shopfront/internal/models"
	"shopfront/internal/repositories"
	"shopfront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	payload events.SizesUpdate
}

// recordingPublisher keeps every event it is asked to publish.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, payload: payload.(events.SizesUpdate)})
	return p.err
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func seedShirt(t *testing.T, repo repositories.ProductRepository, sizes ...models.SizeEntry) *models.Product {
	t.Helper()
	product := &models.Product{
		Title: "Shirt",
		Brand: "Acme",
		Image: "https://cdn.example.com/shirt.png",
		Sizes: sizes,
	}
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func newInventory(repo repositories.ProductRepository, pub events.Publisher) *services.InventoryService {
	return services.NewInventoryService(repo, pub, zap.NewNop())
}

func TestInventoryService_Purchase(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	pub := &recordingPublisher{}
	svc := newInventory(repo, pub)
	shirt := seedShirt(t, repo,
		models.SizeEntry{Name: "S", Quantity: 0},
		models.SizeEntry{Name: "M", Quantity: 3},
	)

	product, err := svc.Purchase(context.Background(), shirt.ID, "M", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, product.Sizes[1].Quantity)
	assert.False(t, product.Sizes[1].Disabled)
	assert.True(t, product.Sizes[0].Disabled)
	assert.False(t, product.IsOutOfStock)

	evts := pub.all()
	require.Len(t, evts, 1)
	assert.Equal(t, "sizes-update-"+shirt.ID, evts[0].topic)
	assert.Equal(t, shirt.ID, evts[0].payload.ProductID)
	assert.Equal(t, events.UpdatedSize{Name: "M", Quantity: 1}, evts[0].payload.UpdatedSize)
	assert.Len(t, evts[0].payload.Sizes, 2)

	// Buying the last unit disables the size and the product runs out.
	product, err = svc.Purchase(context.Background(), shirt.ID, "M", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Sizes[1].Quantity)
	assert.True(t, product.Sizes[1].Disabled)
	assert.True(t, product.IsOutOfStock)
	assert.Len(t, pub.all(), 2)
}

func TestInventoryService_Purchase_Failures(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	pub := &recordingPublisher{}
	svc := newInventory(repo, pub)
	shirt := seedShirt(t, repo, models.SizeEntry{Name: "M", Quantity: 1})

	tests := []struct {
		name      string
		productID string
		size      string
		quantity  int
		wantErr   error
	}{
		{"insufficient stock", shirt.ID, "M", 2, services.ErrInsufficientStock},
		{"unknown size", shirt.ID, "XXL", 1, services.ErrInvalidSize},
		{"size names are case sensitive", shirt.ID, "m", 1, services.ErrInvalidSize},
		{"size names are not trimmed", shirt.ID, " M ", 1, services.ErrInvalidSize},
		{"unknown product", "missing", "M", 1, services.ErrNotFound},
		{"zero quantity", shirt.ID, "M", 0, services.ErrValidation},
		{"negative quantity", shirt.ID, "M", -1, services.ErrValidation},
		{"empty size", shirt.ID, "", 1, services.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Purchase(context.Background(), tc.productID, tc.size, tc.quantity)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// Nothing was published and stock is untouched.
	assert.Empty(t, pub.all())
	sizes, err := svc.ListSizes(context.Background(), shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sizes[0].Quantity)
}

func TestInventoryService_Purchase_PublishFailureKeepsPurchase(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newInventory(repo, pub)
	shirt := seedShirt(t, repo, models.SizeEntry{Name: "M", Quantity: 3})

	product, err := svc.Purchase(context.Background(), shirt.ID, "M", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, product.Sizes[0].Quantity)
	assert.Len(t, pub.all(), 1)
}

func TestInventoryService_Purchase_ConcurrentNeverOversells(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	pub := &recordingPublisher{}
	svc := newInventory(repo, pub)
	const stock = 25
	shirt := seedShirt(t, repo, models.SizeEntry{Name: "M", Quantity: stock})

	const buyers = 100
	var succeeded, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), shirt.ID, "M", 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, services.ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, stock, succeeded.Load())
	assert.EqualValues(t, buyers-stock, rejected.Load())
	assert.Len(t, pub.all(), stock)

	sizes, err := svc.ListSizes(context.Background(), shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sizes[0].Quantity)
	assert.True(t, sizes[0].Disabled)
}

func TestInventoryService_SetSizeQuantity(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	pub := &recordingPublisher{}
	svc := newInventory(repo, pub)
	shirt := seedShirt(t, repo,
		models.SizeEntry{Name: "S", Quantity: 0},
		models.SizeEntry{Name: "M", Quantity: 0},
	)
	require.True(t, shirt.IsOutOfStock)

	product, err := svc.SetSizeQuantity(context.Background(), shirt.ID, "S", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, product.Sizes[0].Quantity)
	assert.False(t, product.Sizes[0].Disabled)
	assert.False(t, product.IsOutOfStock)

	evts := pub.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.UpdatedSize{Name: "S", Quantity: 5}, evts[0].payload.UpdatedSize)

	product, err = svc.SetSizeQuantity(context.Background(), shirt.ID, "S", 0)
	require.NoError(t, err)
	assert.True(t, product.Sizes[0].Disabled)
	assert.True(t, product.IsOutOfStock)

	_, err = svc.SetSizeQuantity(context.Background(), shirt.ID, "XL", 3)
	assert.ErrorIs(t, err, services.ErrSizeNotFound)

	_, err = svc.SetSizeQuantity(context.Background(), shirt.ID, " S", 3)
	assert.ErrorIs(t, err, services.ErrSizeNotFound)

	_, err = svc.SetSizeQuantity(context.Background(), shirt.ID, "S", -1)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.SetSizeQuantity(context.Background(), "missing", "S", 1)
	assert.ErrorIs(t, err, services.ErrNotFound)

	assert.Len(t, pub.all(), 2)
}

func TestInventoryService_ListSizes(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	svc := newInventory(repo, nil)
	shirt := seedShirt(t, repo, models.DefaultSizes()...)

	sizes, err := svc.ListSizes(context.Background(), shirt.ID)
	require.NoError(t, err)
	require.Len(t, sizes, 4)
	assert.Equal(t, "S", sizes[0].Name)
	assert.Equal(t, "XL", sizes[3].Name)

	_, err = svc.ListSizes(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
