package jobs

import (
	"context"
	"testing"
	"time"

	"rentops-backend/internal/config"
	"rentops-backend/internal/domain"
	"rentops-backend/internal/gateway"
	"rentops-backend/internal/repository/memory"
	"rentops-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = domain.Actor{ID: 1, Email: "admin@rentops.test", Role: domain.RoleAdmin}

type jobHarness struct {
	now    time.Time
	store  *memory.Store
	svc    *Services
	owners service.OwnerService
	runner *JobRunner
}

func newJobHarness(t *testing.T) *jobHarness {
	t.Helper()
	h := &jobHarness{now: time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC), store: memory.NewStore()}
	opts := service.Options{AdminEmail: "office@rentops.test", Now: func() time.Time { return h.now }}
	s := h.store
	email := service.NewLogEmailService()
	h.svc = &Services{
		Maintenance: service.NewMaintenanceService(s.MaintenanceRequestRepository, s.OwnerRepository, s, nil, email, opts),
		Invoices:    service.NewInvoiceService(s.MaintenanceRequestRepository, s.PaymentRequestRepository, s.OwnerRepository, s, email, opts),
		Billing:     service.NewBillingService(s.ApplicationRepository, s.OwnerRepository, gateway.NewMockGateway(), opts),
	}
	h.owners = service.NewOwnerService(s.OwnerRepository, opts)
	cfg := &config.Config{
		Billing:     config.BillingConfig{BatchSize: 10},
		Maintenance: config.MaintenanceConfig{PurgeBatchSize: 10},
	}
	h.runner = NewJobRunner(h.svc, cfg)
	return h
}

func (h *jobHarness) submit(t *testing.T, in service.SubmitRequestInput) *domain.MaintenanceRequest {
	t.Helper()
	req, err := h.svc.Maintenance.SubmitRequest(context.Background(), admin, in)
	require.NoError(t, err)
	return req
}

func TestRun_UnknownJob(t *testing.T) {
	h := newJobHarness(t)
	assert.ErrorContains(t, h.runner.Run(context.Background(), "reindex"), "unknown job")
}

func TestRun_RecoversPanic(t *testing.T) {
	runner := NewJobRunner(&Services{}, &config.Config{})
	err := runner.Run(context.Background(), JobPurgeDeletedRequests)
	assert.ErrorContains(t, err, "panicked")
}

func TestPurgeDeletedRequests(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	expired := h.submit(t, service.SubmitRequestInput{RequesterName: "Tess", RequesterEmail: "tess@example.com", Issue: "Leak", PropertyAddress: "12 Elm St"})
	_, err := h.svc.Maintenance.SoftDelete(ctx, admin, expired.ID)
	require.NoError(t, err)

	h.now = h.now.Add(10 * 24 * time.Hour)
	recent := h.submit(t, service.SubmitRequestInput{RequesterName: "Tess", RequesterEmail: "tess@example.com", Issue: "Door", PropertyAddress: "12 Elm St"})
	_, err = h.svc.Maintenance.SoftDelete(ctx, admin, recent.ID)
	require.NoError(t, err)

	h.now = h.now.Add(5 * 24 * time.Hour)
	require.NoError(t, h.runner.Run(ctx, JobPurgeDeletedRequests))

	_, err = h.store.MaintenanceRequestRepository.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.store.MaintenanceRequestRepository.GetByID(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestSendInvoiceReminders(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	o, err := h.owners.CreateOwner(ctx, admin, "Olive", "olive@example.com", "")
	require.NoError(t, err)
	prop, err := h.owners.AddProperty(ctx, admin, o.ID, "Elm duplex", "12 Elm St")
	require.NoError(t, err)
	req := h.submit(t, service.SubmitRequestInput{RequesterName: "Olive", RequesterEmail: o.Email, Issue: "Roof", PropertyID: &prop.ID, UserType: domain.UserTypePropertyOwner})

	bill := decimal.NewFromInt(200)
	res, err := h.svc.Invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: &bill})
	require.NoError(t, err)
	require.NotNil(t, res.PaymentRequest)

	h.now = h.now.Add(31 * 24 * time.Hour)
	require.NoError(t, h.runner.Run(ctx, JobSendInvoiceReminders))

	actions, err := h.svc.Invoices.ListActions(ctx, admin, res.PaymentRequest.ID)
	require.NoError(t, err)
	var reminders int
	for _, a := range actions {
		if a.ActionType == domain.PaymentRequestActionReminder {
			reminders++
		}
	}
	assert.Equal(t, 1, reminders)

	// a second run inside the reminder interval sends nothing new
	require.NoError(t, h.runner.Run(ctx, JobSendInvoiceReminders))
	actions, err = h.svc.Invoices.ListActions(ctx, admin, res.PaymentRequest.ID)
	require.NoError(t, err)
	assert.Len(t, actions, 2)
}

func TestRefreshRentStanding_NoEnrolledLeases(t *testing.T) {
	h := newJobHarness(t)
	assert.NoError(t, h.runner.Run(context.Background(), JobRefreshRentStanding))
}
