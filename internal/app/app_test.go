package app

import (
	"context"
	"testing"
	"time"

	"rentops-backend/internal/config"
	"rentops-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	cfg.Storage.MockDir = t.TempDir()
	cfg.Storage.BaseURL = "http://localhost:8080"
	cfg.Billing.AdminEmail = "office@rentops.test"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceOptions(t *testing.T) {
	opts := ServiceOptions(memoryConfig(t))
	assert.Equal(t, 14*24*time.Hour, opts.GracePeriod)
	assert.Equal(t, 30, opts.InvoiceDueDays)
	assert.Equal(t, "office@rentops.test", opts.AdminEmail)
	assert.Equal(t, 10*time.Minute, opts.ClaimTimeout)
	assert.Equal(t, 15*time.Minute, opts.PhotoURLExpiry)
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NoError(t, a.Store.Ping(ctx))
	assert.NotNil(t, a.Files, "mock storage serves its own files")

	admin := domain.Actor{Email: "admin@rentops.test", Role: domain.RoleAdmin}
	owner, err := a.Owners.CreateOwner(ctx, admin, "Olive", "olive@example.com", "")
	require.NoError(t, err)
	got, err := a.Owners.GetOwner(ctx, admin, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Olive", got.Name)
}
