package repositories_test

import (
	"context"
	"testing"

	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAddress(userID, street string, isDefault bool) *models.Address {
	return &models.Address{
		UserID:    userID,
		Phone:     "9876543210",
		Street:    street,
		City:      "Pune",
		State:     "MH",
		Pincode:   "411001",
		IsDefault: isDefault,
	}
}

func countDefaults(t *testing.T, repo repositories.AddressRepository, userID string) int {
	t.Helper()
	addresses, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	n := 0
	for _, a := range addresses {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestGORMAddressRepository_SingleDefault(t *testing.T) {
	repo := repositories.NewGORMAddressRepository(openTestDB(t))
	ctx := context.Background()

	first := newAddress("u1", "1 Main St", false)
	require.NoError(t, repo.Create(ctx, first))
	assert.True(t, first.IsDefault, "first address becomes the default")

	second := newAddress("u1", "2 Main St", false)
	require.NoError(t, repo.Create(ctx, second))
	assert.False(t, second.IsDefault)

	third := newAddress("u1", "3 Main St", true)
	require.NoError(t, repo.Create(ctx, third))
	assert.Equal(t, 1, countDefaults(t, repo, "u1"))

	def, err := repo.GetDefault(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, third.ID, def.ID)

	got, err := repo.SetDefault(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, 1, countDefaults(t, repo, "u1"))

	def, err = repo.GetDefault(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	// Another user's addresses are independent.
	other := newAddress("u2", "9 Side St", false)
	require.NoError(t, repo.Create(ctx, other))
	assert.True(t, other.IsDefault)
	assert.Equal(t, 1, countDefaults(t, repo, "u1"))
}

func TestGORMAddressRepository_UpdateMissingRollsBack(t *testing.T) {
	repo := repositories.NewGORMAddressRepository(openTestDB(t))
	ctx := context.Background()

	first := newAddress("u1", "1 Main St", false)
	require.NoError(t, repo.Create(ctx, first))

	ghost := newAddress("u1", "nowhere", true)
	ghost.ID = "missing"
	assert.ErrorIs(t, repo.Update(ctx, ghost), repositories.ErrNotFound)

	// The failed update must not have cleared the existing default.
	def, err := repo.GetDefault(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID)
}

func TestGORMAddressRepository_OwnershipAndDelete(t *testing.T) {
	repo := repositories.NewGORMAddressRepository(openTestDB(t))
	ctx := context.Background()

	address := newAddress("u1", "1 Main St", false)
	require.NoError(t, repo.Create(ctx, address))

	_, err := repo.GetByID(ctx, "u2", address.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.SetDefault(ctx, "u2", address.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", address.ID), repositories.ErrNotFound)

	address.City = "Mumbai"
	require.NoError(t, repo.Update(ctx, address))
	got, err := repo.GetByID(ctx, "u1", address.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", got.City)

	require.NoError(t, repo.Delete(ctx, "u1", address.ID))
	_, err = repo.GetDefault(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMAddressRepository_DatabaseRejectsSecondDefault(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewGORMAddressRepository(db)
	ctx := context.Background()

	first := newAddress("u1", "1 Main St", false)
	require.NoError(t, repo.Create(ctx, first))
	require.True(t, first.IsDefault)

	// A writer that skipped clearing the old default, as a racing
	// transaction would, must be refused by the database itself.
	racer := newAddress("u1", "2 Main St", true)
	racer.ID = uuid.NewString()
	err := db.WithContext(ctx).Create(racer).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, 1, countDefaults(t, repo, "u1"))

	// Non-default rows and other users are unaffected.
	require.NoError(t, db.WithContext(ctx).Create(&models.Address{
		ID: uuid.NewString(), UserID: "u1", Phone: "9876543210", Street: "3 Main St",
		City: "Pune", State: "MH", Pincode: "411001",
	}).Error)
	require.NoError(t, repo.Create(ctx, newAddress("u2", "9 Side St", true)))
}
