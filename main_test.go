package main

import (
	"context"
	"testing"

	"shopfront/internal/config"
	"shopfront/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewUploader_DefaultsToPassthrough(t *testing.T) {
	for _, provider := range []string{"", "none"} {
		up := newUploader(context.Background(), &config.Config{MediaProvider: provider}, zap.NewNop())
		assert.IsType(t, media.Passthrough{}, up, "provider %q", provider)
	}
}

func TestOpenStores_Memory(t *testing.T) {
	products, users, addresses, db := openStores(&config.Config{DBDriver: "memory"}, zap.NewNop())
	assert.Nil(t, db)
	assert.NotNil(t, users)
	assert.NotNil(t, addresses)

	seedProducts(context.Background(), products, zap.NewNop())
	all, err := products.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, p := range all {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, []string{p.Image}, []string(p.Thumbnails))
	}

	// Seeding twice keeps titles unique.
	seedProducts(context.Background(), products, zap.NewNop())
	all, err = products.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
