package services_test

import (
	"context"
	"fmt"
	"testing"

	"shopfront/internal/models"
	"shopfront/internal/repositories"
	"shopfront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAddressService() *services.AddressService {
	return services.NewAddressService(repositories.NewMemoryAddressRepository(), zap.NewNop(), 0)
}

func validAddress(street string) services.AddressInput {
	return services.AddressInput{
		Phone:   "9876543210",
		Address: street,
		City:    "Pune",
		State:   "MH",
		Pincode: "411001",
	}
}

func defaults(addresses []models.Address) []string {
	var ids []string
	for _, a := range addresses {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressService_FirstAddressBecomesDefault(t *testing.T) {
	svc := newAddressService()
	ctx := context.Background()

	first, err := svc.AddAddress(ctx, "u1", validAddress("1 Main St"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "u1", first.UserID)

	second, err := svc.AddAddress(ctx, "u1", validAddress("2 Main St"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// Another user's first address is their own default.
	other, err := svc.AddAddress(ctx, "u2", validAddress("9 Side St"))
	require.NoError(t, err)
	assert.True(t, other.IsDefault)

	list, err := svc.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, defaults(list))
}

func TestAddressService_AddDefaultMovesFlag(t *testing.T) {
	svc := newAddressService()
	ctx := context.Background()

	first, err := svc.AddAddress(ctx, "u1", validAddress("1 Main St"))
	require.NoError(t, err)

	in := validAddress("2 Main St")
	in.IsDefault = true
	second, err := svc.AddAddress(ctx, "u1", in)
	require.NoError(t, err)

	list, err := svc.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, defaults(list))

	def, err := svc.GetDefaultAddress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
	assert.NotEqual(t, first.ID, def.ID)
}

func TestAddressService_SetDefault(t *testing.T) {
	svc := newAddressService()
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, "u1", validAddress("1 Main St"))
	require.NoError(t, err)
	b, err := svc.AddAddress(ctx, "u1", validAddress("2 Main St"))
	require.NoError(t, err)
	other, err := svc.AddAddress(ctx, "u2", validAddress("9 Side St"))
	require.NoError(t, err)

	updated, err := svc.SetDefaultAddress(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	list, err := svc.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, defaults(list))

	// Unknown id leaves the current default in place.
	_, err = svc.SetDefaultAddress(ctx, "u1", "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	// Addresses of other users are invisible.
	_, err = svc.SetDefaultAddress(ctx, "u1", other.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	list, err = svc.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, defaults(list))
	assert.NotEqual(t, a.ID, b.ID)

	otherDefault, err := svc.GetDefaultAddress(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, other.ID, otherDefault.ID)
}

func TestAddressService_UpdateAddress(t *testing.T) {
	svc := newAddressService()
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, "u1", validAddress("1 Main St"))
	require.NoError(t, err)
	b, err := svc.AddAddress(ctx, "u1", validAddress("2 Main St"))
	require.NoError(t, err)

	city := "Mumbai"
	makeDefault := true
	updated, err := svc.UpdateAddress(ctx, "u1", b.ID, services.AddressUpdateInput{City: &city, IsDefault: &makeDefault})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.Equal(t, "2 Main St", updated.Street)
	assert.True(t, updated.IsDefault)

	list, err := svc.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, defaults(list))

	badPhone := "12345"
	_, err = svc.UpdateAddress(ctx, "u1", a.ID, services.AddressUpdateInput{Phone: &badPhone})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateAddress(ctx, "u2", a.ID, services.AddressUpdateInput{City: &city})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAddressService_Validation(t *testing.T) {
	svc := newAddressService()

	tests := []struct {
		name   string
		mutate func(*services.AddressInput)
		field  string
	}{
		{"short phone", func(in *services.AddressInput) { in.Phone = "12345" }, "phone"},
		{"letters in phone", func(in *services.AddressInput) { in.Phone = "98765abcde" }, "phone"},
		{"signed phone", func(in *services.AddressInput) { in.Phone = "-987654321" }, "phone"},
		{"long pincode", func(in *services.AddressInput) { in.Pincode = "4110011" }, "pincode"},
		{"missing city", func(in *services.AddressInput) { in.City = "" }, "city"},
		{"missing address", func(in *services.AddressInput) { in.Address = "" }, "address"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validAddress("1 Main St")
			tc.mutate(&in)
			_, err := svc.AddAddress(context.Background(), "u1", in)
			require.ErrorIs(t, err, services.ErrValidation)

			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestAddressService_DeleteAddress(t *testing.T) {
	svc := newAddressService()
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, "u1", validAddress("1 Main St"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteAddress(ctx, "u2", a.ID), services.ErrNotFound)
	require.NoError(t, svc.DeleteAddress(ctx, "u1", a.ID))

	_, err = svc.GetDefaultAddress(ctx, "u1")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// racingAddressRepository fails every insert the way the database does when a
// concurrent request has already claimed the user's default.
type racingAddressRepository struct {
	*repositories.MemoryAddressRepository
}

func (r racingAddressRepository) Create(context.Context, *models.Address) error {
	return fmt.Errorf("failed to create address: %w", repositories.ErrDuplicate)
}

func TestAddressService_ConcurrentDefaultIsConflict(t *testing.T) {
	repo := racingAddressRepository{repositories.NewMemoryAddressRepository()}
	svc := services.NewAddressService(repo, zap.NewNop(), 0)

	_, err := svc.AddAddress(context.Background(), "u1", validAddress("1 Main St"))
	assert.ErrorIs(t, err, services.ErrConflict)
}
