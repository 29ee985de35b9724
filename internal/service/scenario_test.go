package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/gateway"
	"rentops-backend/internal/repository/memory"
	"rentops-backend/internal/service"
	"rentops-backend/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEmail captures outbound notifications.
type recordingEmail struct {
	mu      sync.Mutex
	notices []sentNotice
	fail    error
}

type sentNotice struct {
	kind string
	to   string
	cc   string
}

func (r *recordingEmail) record(kind, to, cc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.notices = append(r.notices, sentNotice{kind: kind, to: to, cc: cc})
	return nil
}

func (r *recordingEmail) sent(kind string) []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotice
	for _, n := range r.notices {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingEmail) Send(ctx context.Context, to, subject, body string) error {
	return r.record("send", to, "")
}
func (r *recordingEmail) SendRequestMessageNotification(ctx context.Context, to string, req *domain.MaintenanceRequest, msg *domain.ConversationMessage) error {
	return r.record("message", to, "")
}
func (r *recordingEmail) SendPaymentRequestNotice(ctx context.Context, to, ccEmail string, notice service.InvoiceNotice) error {
	return r.record("invoice", to, ccEmail)
}
func (r *recordingEmail) SendPaymentReminder(ctx context.Context, to string, notice service.InvoiceNotice) error {
	return r.record("reminder", to, "")
}

type harness struct {
	store    *memory.Store
	gw       *gateway.MockGateway
	email    *recordingEmail
	clock    *clock
	maint    service.MaintenanceService
	invoices service.InvoiceService
	billing  service.BillingService
	funding  service.FundingService
	owners   service.OwnerService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: memory.NewStore(),
		gw:    gateway.NewMockGateway(),
		email: &recordingEmail{},
		clock: &clock{t: fixedNow},
	}
	opts := service.Options{AdminEmail: "office@rentops.test", Now: h.clock.Now}
	s := h.store
	h.maint = service.NewMaintenanceService(s.MaintenanceRequestRepository, s.OwnerRepository, s, nil, h.email, opts)
	h.invoices = service.NewInvoiceService(s.MaintenanceRequestRepository, s.PaymentRequestRepository, s.OwnerRepository, s, h.email, opts)
	h.billing = service.NewBillingService(s.ApplicationRepository, s.OwnerRepository, h.gw, opts)
	h.funding = service.NewFundingService(s.ApplicationRepository, s, h.gw, opts)
	h.owners = service.NewOwnerService(s.OwnerRepository, opts)
	return h
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ownerRequest creates an owner with one property and a request against it.
func (h *harness) ownerRequest(t *testing.T, userType domain.UserType) (*domain.Owner, *domain.MaintenanceRequest) {
	t.Helper()
	ctx := context.Background()

	o, err := h.owners.CreateOwner(ctx, admin, "Olive Owner", owner.Email, "555-0100")
	require.NoError(t, err)
	prop, err := h.owners.AddProperty(ctx, admin, o.ID, "Elm duplex", "12 Elm St")
	require.NoError(t, err)

	req, err := h.maint.SubmitRequest(ctx, admin, service.SubmitRequestInput{
		RequesterName:  "Olive Owner",
		RequesterEmail: owner.Email,
		Issue:          "Water heater failed",
		PropertyID:     &prop.ID,
		UserType:       userType,
		ProposedBudget: dec("150"),
	})
	require.NoError(t, err)
	return o, req
}

func TestScenario_RequestToInvoiceToPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{ActualCost: dec("180"), AmountToBill: dec("200")})
	require.NoError(t, err)
	require.NotNil(t, res.PaymentRequest)
	assert.True(t, res.Created)

	pr := res.PaymentRequest
	assert.Equal(t, domain.PaymentRequestStatusPending, pr.Status)
	assert.Equal(t, o.ID, pr.OwnerID)
	assert.Equal(t, "200", pr.Amount.String())
	assert.Equal(t, "150", pr.ProposedBudget.Decimal.String())
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), pr.DueDate)
	assert.Equal(t, "180", res.Request.ActualCost.Decimal.String())

	notices := h.email.sent("invoice")
	require.Len(t, notices, 1)
	assert.Equal(t, owner.Email, notices[0].to)
	assert.Equal(t, "office@rentops.test", notices[0].cc)

	paid, err := h.invoices.MarkPaid(ctx, admin, pr.ID, decimal.NewFromInt(200), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, utils.DateOnly(fixedNow), *paid.PaidDate)

	actions, err := h.invoices.ListActions(ctx, admin, pr.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, domain.PaymentRequestActionCreated, actions[0].ActionType)
	assert.Equal(t, domain.PaymentRequestActionPaid, actions[1].ActionType)

	// a second payment is rejected
	_, err = h.invoices.MarkPaid(ctx, admin, pr.ID, decimal.NewFromInt(200), nil)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionPaymentRequestState))
}

func TestScenario_AtMostOneInvoicePerRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypeHomeOwner)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(100 + i))
			_, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: &amount})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, total, err := h.invoices.ListPaymentRequests(ctx, admin, domain.PaymentRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, list, 1)

	// the invoice carries whichever amount was written last
	got, err := h.maint.GetRequest(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.True(t, got.AmountToBill.Decimal.Equal(list[0].Amount))
}

func TestScenario_TenantRequestsAreNeverInvoiced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypeTenant)

	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{ActualCost: dec("90"), AmountToBill: dec("90")})
	require.NoError(t, err)
	assert.Nil(t, res.PaymentRequest)
	assert.Equal(t, "90", res.Request.AmountToBill.Decimal.String())

	_, total, err := h.invoices.ListPaymentRequests(ctx, admin, domain.PaymentRequestFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, h.email.sent("invoice"))
}

func TestScenario_ZeroAmountLeavesInvoiceAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	first, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("75")})
	require.NoError(t, err)

	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("0")})
	require.NoError(t, err)
	assert.Nil(t, res.PaymentRequest)

	pr, err := h.invoices.GetPaymentRequest(ctx, admin, first.PaymentRequest.ID)
	require.NoError(t, err)
	assert.Equal(t, "75", pr.Amount.String())
}

func TestScenario_RebillRevertsPaidInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("120")})
	require.NoError(t, err)
	prID := res.PaymentRequest.ID
	_, err = h.invoices.MarkPaid(ctx, admin, prID, decimal.NewFromInt(120), nil)
	require.NoError(t, err)

	// editing only the actual cost does not touch the paid invoice
	_, err = h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{ActualCost: dec("110")})
	require.NoError(t, err)
	pr, err := h.invoices.GetPaymentRequest(ctx, admin, prID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestStatusPaid, pr.Status)

	res, err = h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("140")})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, prID, res.PaymentRequest.ID)
	assert.Equal(t, domain.PaymentRequestStatusPending, res.PaymentRequest.Status)
	assert.Nil(t, res.PaymentRequest.PaidDate)
	assert.False(t, res.PaymentRequest.PaidAmount.Valid)

	actions, err := h.invoices.ListActions(ctx, admin, prID)
	require.NoError(t, err)
	last := actions[len(actions)-1]
	assert.Equal(t, domain.PaymentRequestActionStatusReset, last.ActionType)
	assert.Equal(t, domain.PaymentRequestStatusPaid, last.FromStatus)
	assert.Equal(t, domain.PaymentRequestStatusPending, last.ToStatus)
}

func TestScenario_InvoiceEmailFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)
	h.email.fail = assert.AnError

	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("60")})
	require.NoError(t, err)
	require.NotNil(t, res.PaymentRequest)

	_, total, err := h.invoices.ListPaymentRequests(ctx, admin, domain.PaymentRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
}

func TestScenario_OverdueReminders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	_, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("300")})
	require.NoError(t, err)

	sent, err := h.invoices.SendOverdueReminders(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, sent)

	h.clock.Advance(31 * 24 * time.Hour)
	sent, err = h.invoices.SendOverdueReminders(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// not again within the reminder interval
	h.clock.Advance(24 * time.Hour)
	sent, err = h.invoices.SendOverdueReminders(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, sent)

	h.clock.Advance(7 * 24 * time.Hour)
	sent, err = h.invoices.SendOverdueReminders(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, h.email.sent("reminder"), 2)
}

func TestScenario_SoftDeleteRecoverRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	deleted, err := h.maint.SoftDelete(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedBy)
	assert.Equal(t, admin.Email, *deleted.DeletedBy)

	_, err = h.maint.SoftDelete(ctx, admin, req.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionAlreadyDeleted))

	h.clock.Advance(3*24*time.Hour + time.Hour)
	view, err := h.maint.GetRequest(ctx, admin, req.ID)
	require.NoError(t, err)
	require.NotNil(t, view.GraceDaysLeft)
	assert.Equal(t, 11, *view.GraceDaysLeft)
	assert.Equal(t, fixedNow.Add(14*24*time.Hour), *view.PermanentRemovalDate)

	// messages can still be appended while deleted
	_, err = h.maint.AppendMessage(ctx, admin, req.ID, "Checking with the owner first", true)
	require.NoError(t, err)

	recovered, err := h.maint.Recover(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.False(t, recovered.IsDeleted)
	assert.Nil(t, recovered.DeletedAt)
	assert.Nil(t, recovered.DeletedBy)

	_, err = h.maint.Recover(ctx, admin, req.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionNotDeleted))

	msgs, err := h.maint.ListMessages(ctx, admin, req.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Text, "2024-04-24")
	for _, m := range msgs {
		assert.True(t, m.IsInternal)
	}

	// the requester never sees internal notes
	msgs, err = h.maint.ListMessages(ctx, owner, req.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestScenario_PurgeAfterGracePeriod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)

	_, err := h.maint.SoftDelete(ctx, admin, req.ID)
	require.NoError(t, err)

	h.clock.Advance(13 * 24 * time.Hour)
	purged, err := h.maint.PurgeExpired(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, purged)

	h.clock.Advance(24 * time.Hour)
	view, err := h.maint.GetRequest(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *view.GraceDaysLeft)

	purged, err = h.maint.PurgeExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = h.maint.GetRequest(ctx, admin, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScenario_PurgeKeepsInvoicedRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, req := h.ownerRequest(t, domain.UserTypePropertyOwner)
	res, err := h.invoices.SetCosts(ctx, admin, req.ID, domain.CostEntry{AmountToBill: dec("150")})
	require.NoError(t, err)
	pr := res.PaymentRequest
	_, err = h.invoices.MarkPaid(ctx, admin, pr.ID, decimal.NewFromInt(150), nil)
	require.NoError(t, err)

	_, err = h.maint.SoftDelete(ctx, admin, req.ID)
	require.NoError(t, err)

	h.clock.Advance(15 * 24 * time.Hour)
	purged, err := h.maint.PurgeExpired(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, purged)

	kept, err := h.invoices.GetPaymentRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestStatusPaid, kept.Status)
	actions, err := h.invoices.ListActions(ctx, admin, pr.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, actions)

	// the request itself stays recoverable
	_, err = h.maint.GetRequest(ctx, admin, req.ID)
	require.NoError(t, err)

	err = h.maint.HardDelete(ctx, admin, req.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionInvoiced))
	_, err = h.invoices.GetPaymentRequest(ctx, admin, pr.ID)
	require.NoError(t, err)
}

func TestScenario_ApprovalIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req, err := h.maint.SubmitRequest(ctx, tenant, service.SubmitRequestInput{
		RequesterName:    "Tess Tenant",
		Issue:            "Repaint bedroom",
		PropertyAddress:  "12 Elm St",
		RequiresApproval: true,
	})
	require.NoError(t, err)

	approved, err := h.maint.DecideApproval(ctx, admin, req.ID, domain.ApprovalDecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, approved.ApprovalStatus)
	require.NotNil(t, approved.ApprovalDate)

	_, err = h.maint.DecideApproval(ctx, admin, req.ID, domain.ApprovalDecisionDecline)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionAlreadyDecided))

	got, err := h.maint.GetRequest(ctx, tenant, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, got.ApprovalStatus)
}

// approvedLease submits and approves an application for 900/month starting
// 2024-04-15.
func (h *harness) approvedLease(t *testing.T) *domain.RentalApplication {
	t.Helper()
	ctx := context.Background()

	app, err := h.billing.SubmitApplication(ctx, tenant, service.SubmitApplicationInput{ApplicantName: "Tess Tenant"})
	require.NoError(t, err)

	app, err = h.billing.ApproveApplication(ctx, admin, app.ID, service.ApproveApplicationInput{
		MonthlyRent:    decimal.NewFromInt(900),
		LeaseStartDate: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:   time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return app
}

// fundedLease also links both funding sources and pays the deposit.
func (h *harness) fundedLease(t *testing.T) *domain.RentalApplication {
	t.Helper()
	ctx := context.Background()
	app := h.approvedLease(t)

	_, err := h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceBank, "btok_checking")
	require.NoError(t, err)
	_, err = h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceCard, "tok_visa")
	require.NoError(t, err)
	app, err = h.funding.ChargeDeposit(ctx, admin, app.ID, decimal.NewFromInt(900))
	require.NoError(t, err)
	return app
}

func TestScenario_ApprovalProratesFirstPayment(t *testing.T) {
	h := newHarness(t)
	app := h.approvedLease(t)

	assert.Equal(t, domain.ApplicationStatusApproved, app.Status)
	assert.True(t, app.IsProrated)
	assert.Equal(t, "480", app.FirstPaymentAmount.Decimal.String())
	require.NotNil(t, app.ApprovedBy)
	assert.Equal(t, admin.Email, *app.ApprovedBy)
}

func TestScenario_EnrollmentPreconditionsInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.approvedLease(t)

	_, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionNoCheckingAccount), err)

	_, err = h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceBank, "btok_checking")
	require.NoError(t, err)
	_, err = h.billing.EnableAutoPay(ctx, tenant, app.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionNoCreditCard), err)

	_, err = h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceCard, "tok_visa")
	require.NoError(t, err)
	_, err = h.billing.EnableAutoPay(ctx, tenant, app.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionDepositUnpaid), err)

	_, err = h.funding.RecordDeposit(ctx, admin, app.ID, decimal.NewFromInt(900), "paid by cheque")
	require.NoError(t, err)
	enrolled, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.NoError(t, err)
	assert.True(t, enrolled.AutoPayEnabled)

	assert.Equal(t, 1, h.gw.Calls(gateway.OpCreateCustomer))
	assert.Equal(t, 1, h.gw.Calls(gateway.OpSetDefaultSource))
	assert.Zero(t, h.gw.Calls(gateway.OpCreateCharge))
}

func TestScenario_EnrollmentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.fundedLease(t)

	enrolled, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.NoError(t, err)
	assert.True(t, enrolled.AutoPayEnabled)
	require.NotNil(t, enrolled.SubscriptionRef)
	assert.Equal(t, domain.RentPaymentStatusCurrent, enrolled.RentPaymentStatus)
	// prorated lease starting mid-April: trial until May 1
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *enrolled.NextPaymentDate)

	plans := h.gw.Plans()
	require.Len(t, plans, 1)
	assert.Equal(t, int64(90000), plans[0].AmountCents)
	assert.Nil(t, plans[0].Request.Anchor)
	require.NotNil(t, plans[0].Request.TrialEnd)

	_, err = h.billing.EnableAutoPay(ctx, tenant, app.ID)
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionAlreadyEnrolled))
	assert.Len(t, h.gw.Plans(), 1)
}

func TestScenario_ConcurrentEnrollmentCreatesOnePlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.fundedLease(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		enrolled  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if domain.IsPrecondition(err, domain.PreconditionAlreadyEnrolled) {
				enrolled++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, enrolled)
	assert.Len(t, h.gw.Plans(), 1)
}

func TestScenario_GatewayFailureLeavesLeaseUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.fundedLease(t)

	h.gw.FailOn(gateway.OpCreateRecurringPlan, "api_error")
	_, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.Error(t, err)
	assert.True(t, gateway.IsGatewayError(err))

	after, err := h.billing.GetApplication(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app, after)

	// the claim was released, so a retry goes through
	h.gw.ClearFailures()
	enrolled, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.NoError(t, err)
	assert.True(t, enrolled.AutoPayEnabled)
}

func TestScenario_FundingFailureStoresNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.approvedLease(t)

	h.gw.FailOn(gateway.OpAttachSource, "invalid_request")
	_, err := h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceBank, "btok_checking")
	assert.True(t, gateway.IsGatewayError(err))

	after, err := h.billing.GetApplication(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Nil(t, after.GatewayCustomerRef)
	assert.False(t, after.HasCheckingAccount)
}

func TestScenario_DepositChargeFailureReleasesClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.approvedLease(t)
	_, err := h.funding.AttachFundingSource(ctx, tenant, app.ID, domain.FundingSourceCard, "tok_visa")
	require.NoError(t, err)

	h.gw.FailOn(gateway.OpCreateCharge, "card_declined")
	_, err = h.funding.ChargeDeposit(ctx, admin, app.ID, decimal.NewFromInt(900))
	assert.True(t, gateway.IsGatewayError(err))

	h.gw.ClearFailures()
	paid, err := h.funding.ChargeDeposit(ctx, admin, app.ID, decimal.NewFromInt(900))
	require.NoError(t, err)
	assert.True(t, paid.SecurityDepositPaid)

	_, err = h.funding.ChargeDeposit(ctx, admin, app.ID, decimal.NewFromInt(900))
	assert.True(t, domain.IsPrecondition(err, domain.PreconditionDepositAlreadyPaid))
	assert.Len(t, h.gw.Charges(), 1)
}

func TestScenario_RentStanding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.fundedLease(t)
	_, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.NoError(t, err)

	_, err = h.billing.RecordRentPayment(ctx, admin, app.ID)
	require.NoError(t, err)
	standing, err := h.billing.GetRentStanding(ctx, tenant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentPaymentStatusPaidAhead, standing.Status)

	// May 2: the May installment was covered, so the schedule moves to June
	h.clock.t = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	updated, err := h.billing.RefreshStandings(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	after, err := h.billing.GetApplication(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *after.NextPaymentDate)
	assert.Equal(t, domain.RentPaymentStatusCurrent, after.RentPaymentStatus)

	// June 3 without a payment: late
	h.clock.t = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	_, err = h.billing.RefreshStandings(ctx, 10)
	require.NoError(t, err)
	after, err = h.billing.GetApplication(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentPaymentStatusLate, after.RentPaymentStatus)
}

func TestScenario_RentStandingRollsStaleSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	app := h.fundedLease(t)
	_, err := h.billing.EnableAutoPay(ctx, tenant, app.ID)
	require.NoError(t, err)

	// May and June both paid
	_, err = h.billing.RecordRentPayment(ctx, admin, app.ID)
	require.NoError(t, err)
	_, err = h.billing.RecordRentPayment(ctx, admin, app.ID)
	require.NoError(t, err)

	// May 3 with no refresh run: stored schedule still says May 1
	h.clock.t = time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	standing, err := h.billing.GetRentStanding(ctx, tenant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentPaymentStatusPaidAhead, standing.Status)
	require.NotNil(t, standing.NextPaymentDate)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *standing.NextPaymentDate)
}
