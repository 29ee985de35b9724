package service_test

import (
	"context"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockRequestRepo
type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRequestRepo) GetByID(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}
func (m *MockRequestRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}
func (m *MockRequestRepo) List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.MaintenanceRequest), args.Get(1).(int32), args.Error(2)
}
func (m *MockRequestRepo) UpdateDetails(ctx context.Context, id int32, upd domain.RequestUpdate, at time.Time) (bool, error) {
	args := m.Called(ctx, id, upd, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRequestRepo) UpdateCosts(ctx context.Context, id int32, actualCost, amountToBill decimal.NullDecimal, at time.Time) error {
	args := m.Called(ctx, id, actualCost, amountToBill, at)
	return args.Error(0)
}
func (m *MockRequestRepo) MarkDeleted(ctx context.Context, id int32, by string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, by, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRequestRepo) ClearDeleted(ctx context.Context, id int32, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRequestRepo) DecideApproval(ctx context.Context, id int32, status domain.ApprovalStatus, by string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, status, by, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRequestRepo) HardDelete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRequestRepo) ListExpiredDeleted(ctx context.Context, deletedBefore time.Time, limit int32) ([]domain.MaintenanceRequest, error) {
	args := m.Called(ctx, deletedBefore, limit)
	return args.Get(0).([]domain.MaintenanceRequest), args.Error(1)
}
func (m *MockRequestRepo) AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockRequestRepo) ListMessages(ctx context.Context, requestID int32, includeInternal bool) ([]domain.ConversationMessage, error) {
	args := m.Called(ctx, requestID, includeInternal)
	return args.Get(0).([]domain.ConversationMessage), args.Error(1)
}

// MockOwnerRepo
type MockOwnerRepo struct {
	mock.Mock
}

func (m *MockOwnerRepo) Create(ctx context.Context, owner *domain.Owner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}
func (m *MockOwnerRepo) GetByID(ctx context.Context, id int32) (*domain.Owner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Owner), args.Error(1)
}
func (m *MockOwnerRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockOwnerRepo) AddProperty(ctx context.Context, prop *domain.Property) error {
	args := m.Called(ctx, prop)
	return args.Error(0)
}
func (m *MockOwnerRepo) GetProperty(ctx context.Context, id int32) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}
func (m *MockEmailService) SendRequestMessageNotification(ctx context.Context, to string, req *domain.MaintenanceRequest, msg *domain.ConversationMessage) error {
	args := m.Called(ctx, to, req, msg)
	return args.Error(0)
}
func (m *MockEmailService) SendPaymentRequestNotice(ctx context.Context, to, ccEmail string, notice service.InvoiceNotice) error {
	args := m.Called(ctx, to, ccEmail, notice)
	return args.Error(0)
}
func (m *MockEmailService) SendPaymentReminder(ctx context.Context, to string, notice service.InvoiceNotice) error {
	args := m.Called(ctx, to, notice)
	return args.Error(0)
}

// passTx runs fn without a transaction.
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	admin  = domain.Actor{ID: 1, Email: "admin@rentops.test", Name: "Ada Admin", Role: domain.RoleAdmin}
	tenant = domain.Actor{ID: 2, Email: "tess@example.com", Name: "Tess Tenant", Role: domain.RoleUser}
	owner  = domain.Actor{ID: 3, Email: "olive@example.com", Name: "Olive Owner", Role: domain.RoleUser}
)

// clock is a settable time source for Options.Now.
type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
