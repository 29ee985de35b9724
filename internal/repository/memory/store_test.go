package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	req := &domain.MaintenanceRequest{Issue: "Leak", Status: domain.RequestStatusPending, CreatedAt: now}
	require.NoError(t, s.MaintenanceRequestRepository.Create(ctx, req))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		bill := decimal.NullDecimal{Decimal: decimal.NewFromInt(150), Valid: true}
		if err := s.MaintenanceRequestRepository.UpdateCosts(ctx, req.ID, decimal.NullDecimal{}, bill, now); err != nil {
			return err
		}
		if _, err := s.PaymentRequestRepository.Upsert(ctx, domain.InvoiceUpsert{ManagerRequestID: req.ID, Amount: bill.Decimal}, now); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.MaintenanceRequestRepository.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, got.AmountToBill.Valid)

	_, err = s.PaymentRequestRepository.GetByManagerRequestID(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_RollbackKeepsOutsideWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")
	txErr := make(chan error, 1)
	go func() {
		txErr <- s.WithinTx(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return boom
		})
	}()
	<-started

	req := &domain.MaintenanceRequest{Issue: "Broken lock", Status: domain.RequestStatusPending, CreatedAt: now}
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.MaintenanceRequestRepository.Create(ctx, req)
	}()

	select {
	case <-writeErr:
		t.Fatal("write committed while a transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.ErrorIs(t, <-txErr, boom)
	require.NoError(t, <-writeErr)

	got, err := s.MaintenanceRequestRepository.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Broken lock", got.Issue)
}

func TestStore_UpsertKeepsOneRowPerRequest(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	first, err := s.PaymentRequestRepository.Upsert(ctx, domain.InvoiceUpsert{ManagerRequestID: 1, Amount: decimal.NewFromInt(100)}, now)
	require.NoError(t, err)
	assert.True(t, first.Created)

	ok, err := s.PaymentRequestRepository.MarkPaid(ctx, first.PaymentRequest.ID, decimal.NewFromInt(100), now, now)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := s.PaymentRequestRepository.Upsert(ctx, domain.InvoiceUpsert{ManagerRequestID: 1, Amount: decimal.NewFromInt(150)}, now)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, domain.PaymentRequestStatusPaid, second.PreviousStatus)
	assert.Equal(t, first.PaymentRequest.ID, second.PaymentRequest.ID)
	assert.Nil(t, second.PaymentRequest.PaidDate)

	_, total, err := s.PaymentRequestRepository.List(ctx, domain.PaymentRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
}

func TestStore_ClaimEnrollmentIsExclusive(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	app := &domain.RentalApplication{ApplicantName: "Tess", Status: domain.ApplicationStatusPending, CreatedAt: now}
	require.NoError(t, s.ApplicationRepository.Create(ctx, app))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ApplicationRepository.ClaimEnrollment(ctx, app.ID, now, now.Add(-10*time.Minute))
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	// a stale claim can be taken over
	ok, err := s.ApplicationRepository.ClaimEnrollment(ctx, app.ID, now.Add(time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_OwnerDeleteCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	owner := &domain.Owner{Name: "Olive", Email: "olive@example.com"}
	require.NoError(t, s.OwnerRepository.Create(ctx, owner))
	prop := &domain.Property{OwnerID: owner.ID, Name: "Elm duplex", Address: "12 Elm St"}
	require.NoError(t, s.OwnerRepository.AddProperty(ctx, prop))

	got, err := s.OwnerRepository.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, got.Properties, 1)

	require.NoError(t, s.OwnerRepository.Delete(ctx, owner.ID))
	_, err = s.OwnerRepository.GetProperty(ctx, prop.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
