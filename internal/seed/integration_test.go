//go:build integration

package seed

import (
	"context"
	"os"
	"testing"

	"arcade/internal/bootstrap"
	"arcade/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegration_SeedPostgres runs the seeder against DATABASE_URL.
func TestIntegration_SeedPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	ctx := context.Background()
	cfg := &config.Config{
		Env:         "test",
		DBDriver:    config.DriverPostgres,
		DatabaseURL: dsn,
	}

	stores, err := bootstrap.OpenStores(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close(ctx) })

	sum, err := NewSeeder(stores, Options{
		NumUsers:    10,
		NumPosts:    25,
		ShouldClean: true,
		BcryptCost:  bcrypt.MinCost,
	}).Seed(ctx)
	require.NoError(t, err)

	posts, err := stores.Posts.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, posts, sum.Posts)
}
