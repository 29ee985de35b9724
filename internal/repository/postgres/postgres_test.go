package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTxManager_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE maintenance_requests SET actual_cost").
			WithArgs(nil, "150", now, int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(ctx context.Context) error {
			return store.MaintenanceRequestRepository.UpdateCosts(ctx, 1, nullDec(""), nullDec("150"), now)
		})
		assert.NoError(t, err)
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Missing row inside tx", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE maintenance_requests SET actual_cost").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context) error {
			return store.MaintenanceRequestRepository.UpdateCosts(ctx, 2, nullDec(""), nullDec(""), now)
		})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepository_GetByID_LoadsProperties(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewOwnerRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, email, phone, created_at FROM owners WHERE id = \\$1").
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "created_at"}).
			AddRow(1, "Olive", "olive@example.com", "", now))
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE owner_id = \\$1").
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "address", "created_at"}).
			AddRow(3, 1, "Elm duplex", "12 Elm St", now).
			AddRow(4, 1, "Oak cottage", "4 Oak Ln", now))

	owner, err := repo.GetByID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, owner.Properties, 2)
	assert.Equal(t, "Oak cottage", owner.Properties[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func nullDec(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}
