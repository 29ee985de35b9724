package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/gateway"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
	"rentops-backend/internal/utils"
)

type billingService struct {
	appRepo   repository.ApplicationRepository
	ownerRepo repository.OwnerRepository
	gateway   gateway.PaymentGateway
	opts      Options
}

func NewBillingService(
	appRepo repository.ApplicationRepository,
	ownerRepo repository.OwnerRepository,
	gw gateway.PaymentGateway,
	opts Options,
) BillingService {
	return &billingService{
		appRepo:   appRepo,
		ownerRepo: ownerRepo,
		gateway:   gw,
		opts:      opts.withDefaults(),
	}
}

// canAccessApplication admits admins and the applicant.
func canAccessApplication(actor domain.Actor, app *domain.RentalApplication) error {
	if actor.IsAdmin() || sameEmail(actor.Email, app.ApplicantEmail) {
		return nil
	}
	return fmt.Errorf("%w: application %d belongs to another applicant", domain.ErrForbidden, app.ID)
}

func (s *billingService) SubmitApplication(ctx context.Context, actor domain.Actor, in SubmitApplicationInput) (*domain.RentalApplication, error) {
	logger.EnterMethod("billingService.SubmitApplication", "actor", actor.Email)

	in.ApplicantName = strings.TrimSpace(in.ApplicantName)
	in.ApplicantEmail = strings.TrimSpace(in.ApplicantEmail)
	if in.ApplicantEmail == "" && !actor.IsAdmin() {
		in.ApplicantEmail = actor.Email
	}
	if in.ApplicantName == "" {
		return nil, domain.NewValidationError("applicant_name", "is required")
	}
	if in.ApplicantEmail == "" {
		return nil, domain.NewValidationError("applicant_email", "is required")
	}
	if in.PropertyID != nil {
		if _, err := s.ownerRepo.GetProperty(ctx, *in.PropertyID); err != nil {
			return nil, err
		}
	}

	app := &domain.RentalApplication{
		ApplicantName:  in.ApplicantName,
		ApplicantEmail: in.ApplicantEmail,
		ApplicantPhone: in.ApplicantPhone,
		PropertyID:     in.PropertyID,
		Status:         domain.ApplicationStatusPending,
		CreatedAt:      s.opts.Now(),
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		logger.ExitMethodWithError("billingService.SubmitApplication", err)
		return nil, err
	}

	logger.ExitMethod("billingService.SubmitApplication", "applicationID", app.ID)
	return app, nil
}

func (s *billingService) GetApplication(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccessApplication(actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ApproveApplication turns a pending application into a lease. The first
// payment is prorated here once and stored; enrollment re-derives the same
// figures from the stored lease.
func (s *billingService) ApproveApplication(ctx context.Context, actor domain.Actor, id int32, in ApproveApplicationInput) (*domain.RentalApplication, error) {
	logger.EnterMethod("billingService.ApproveApplication", "applicationID", id)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	switch {
	case !in.MonthlyRent.IsPositive():
		return nil, domain.NewValidationError("monthly_rent", "must be greater than zero")
	case in.LeaseStartDate.IsZero():
		return nil, domain.NewValidationError("lease_start_date", "is required")
	case in.LeaseEndDate.IsZero():
		return nil, domain.NewValidationError("lease_end_date", "is required")
	case !utils.DateOnly(in.LeaseEndDate).After(utils.DateOnly(in.LeaseStartDate)):
		return nil, domain.NewValidationError("lease_end_date", "must be after the lease start date")
	}

	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, fmt.Sprintf("application is %s", app.Status))
	}

	rent := utils.Round2(in.MonthlyRent)
	start := utils.DateOnly(in.LeaseStartDate)
	p := utils.ComputeProration(rent, start)

	ok, err := s.appRepo.Approve(ctx, id, domain.LeaseApproval{
		MonthlyRent:        rent,
		LeaseStartDate:     start,
		LeaseEndDate:       utils.DateOnly(in.LeaseEndDate),
		FirstPaymentAmount: p.FirstPaymentAmount,
		IsProrated:         p.IsProrated,
		FirstPaymentDue:    p.FirstPaymentDue,
		ApprovedBy:         actor.Email,
	}, s.opts.Now())
	if err != nil {
		logger.ExitMethodWithError("billingService.ApproveApplication", err)
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, "application was decided concurrently")
	}

	logger.Info("Application approved", "applicationID", id, "rent", rent, "prorated", p.IsProrated, "firstPayment", p.FirstPaymentAmount)
	logger.ExitMethod("billingService.ApproveApplication", "applicationID", id)
	return s.appRepo.GetByID(ctx, id)
}

func (s *billingService) RejectApplication(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, fmt.Sprintf("application is %s", app.Status))
	}
	ok, err := s.appRepo.Reject(ctx, id, s.opts.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, "application was decided concurrently")
	}
	logger.Info("Application rejected", "applicationID", id, "by", actor.Email)
	return s.appRepo.GetByID(ctx, id)
}

// enrollmentPrecondition returns the first unmet enrollment requirement.
func enrollmentPrecondition(app *domain.RentalApplication) error {
	switch {
	case app.AutoPayEnabled:
		return domain.NewPreconditionError(domain.PreconditionAlreadyEnrolled, "auto-pay is already enabled")
	case !app.HasCheckingAccount:
		return domain.NewPreconditionError(domain.PreconditionNoCheckingAccount, "a checking account must be linked first")
	case !app.HasCreditCard:
		return domain.NewPreconditionError(domain.PreconditionNoCreditCard, "a credit card must be linked first")
	case !app.SecurityDepositPaid:
		return domain.NewPreconditionError(domain.PreconditionDepositUnpaid, "the security deposit must be paid first")
	case app.LeaseStartDate == nil || app.LeaseEndDate == nil:
		return domain.NewPreconditionError(domain.PreconditionLeaseDatesMissing, "lease start and end dates are required")
	case !app.MonthlyRent.IsPositive():
		return domain.NewPreconditionError(domain.PreconditionRentNotPositive, "monthly rent must be greater than zero")
	}
	return nil
}

// EnableAutoPay creates the recurring rent plan on the gateway. Concurrent
// calls race for the enrollment claim; only the winner talks to the gateway.
// A gateway failure leaves the lease exactly as it was.
func (s *billingService) EnableAutoPay(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error) {
	logger.EnterMethod("billingService.EnableAutoPay", "applicationID", id, "actor", actor.Email)

	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccessApplication(actor, app); err != nil {
		return nil, err
	}
	if err := enrollmentPrecondition(app); err != nil {
		return nil, err
	}
	if app.GatewayCustomerRef == nil {
		return nil, domain.NewPreconditionError(domain.PreconditionNoCheckingAccount, "no payment customer on file")
	}

	now := s.opts.Now()
	claimed, err := s.appRepo.ClaimEnrollment(ctx, id, now, now.Add(-s.opts.ClaimTimeout))
	if err != nil {
		logger.ExitMethodWithError("billingService.EnableAutoPay", err)
		return nil, err
	}
	if !claimed {
		current, err := s.appRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.AutoPayEnabled {
			return nil, domain.NewPreconditionError(domain.PreconditionAlreadyEnrolled, "auto-pay is already enabled")
		}
		return nil, domain.NewPreconditionError(domain.PreconditionAlreadyEnrolled, "enrollment already in progress")
	}

	rent := app.MonthlyRent
	start, end := *app.LeaseStartDate, *app.LeaseEndDate
	proration := utils.ComputeProration(rent, start)
	schedule := utils.PlanBillingSchedule(start, proration.IsProrated, utils.DateOnly(now))

	metadata := map[string]string{"application_id": strconv.Itoa(int(id))}
	if app.PropertyID != nil {
		metadata["property_id"] = strconv.Itoa(int(*app.PropertyID))
	}

	logger.ExternalServiceCall("payment-gateway", "CreateRecurringPlan", "applicationID", id, "deferred", schedule.Deferred())
	ref, err := s.gateway.CreateRecurringPlan(ctx, gateway.PlanRequest{
		CustomerRef: *app.GatewayCustomerRef,
		Amount:      rent,
		Interval:    gateway.IntervalMonth,
		Anchor:      schedule.Anchor,
		TrialEnd:    schedule.TrialEnd,
		Metadata:    metadata,
	})
	logger.ExternalServiceResult("payment-gateway", "CreateRecurringPlan", err, "applicationID", id)
	if err != nil {
		s.releaseEnrollment(ctx, id)
		logger.ExitMethodWithError("billingService.EnableAutoPay", err)
		return nil, fmt.Errorf("failed to create recurring plan: %w", err)
	}

	ok, err := s.appRepo.CompleteEnrollment(ctx, id, domain.Enrollment{
		SubscriptionRef: ref,
		NextPaymentDate: schedule.NextPaymentDate,
		MonthlyRent:     rent,
		LeaseStartDate:  start,
		LeaseEndDate:    end,
	}, now)
	if err == nil && !ok {
		err = domain.NewPreconditionError(domain.PreconditionAlreadyEnrolled, "auto-pay is already enabled")
	}
	if err != nil {
		// The plan exists on the gateway but not here; it needs manual cleanup.
		logger.Error("Recurring plan created but enrollment not saved", "applicationID", id, "subscriptionRef", ref, "error", err)
		s.releaseEnrollment(ctx, id)
		return nil, err
	}

	logger.Info("Auto-pay enabled", "applicationID", id, "subscriptionRef", ref, "nextPayment", schedule.NextPaymentDate.Format(utils.DateLayout))
	logger.ExitMethod("billingService.EnableAutoPay", "applicationID", id)
	return s.appRepo.GetByID(ctx, id)
}

func (s *billingService) releaseEnrollment(ctx context.Context, id int32) {
	if err := s.appRepo.ReleaseEnrollment(ctx, id); err != nil {
		logger.Error("Failed to release enrollment claim", "applicationID", id, "error", err)
	}
}

// RecordRentPayment marks the earliest uncovered installment as paid.
func (s *billingService) RecordRentPayment(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error) {
	logger.EnterMethod("billingService.RecordRentPayment", "applicationID", id)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.AutoPayEnabled {
		return nil, domain.NewPreconditionError(domain.PreconditionNotEnrolled, "auto-pay is not enabled")
	}
	covered, ok := utils.NextUncoveredInstallment(app.NextPaymentDate, app.LastPaymentDate)
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionNotEnrolled, "no payment schedule")
	}

	ok, err = s.appRepo.RecordRentPayment(ctx, id, app.LastPaymentDate, covered, s.opts.Now())
	if err != nil {
		logger.ExitMethodWithError("billingService.RecordRentPayment", err)
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, "a rent payment was recorded concurrently; retry")
	}

	logger.Info("Rent payment recorded", "applicationID", id, "covers", covered.Format(utils.DateLayout))
	logger.ExitMethod("billingService.RecordRentPayment", "applicationID", id)
	return s.appRepo.GetByID(ctx, id)
}

func (s *billingService) GetRentStanding(ctx context.Context, actor domain.Actor, id int32) (*domain.RentStanding, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccessApplication(actor, app); err != nil {
		return nil, err
	}
	if !app.AutoPayEnabled {
		return nil, domain.NewPreconditionError(domain.PreconditionNotEnrolled, "auto-pay is not enabled")
	}

	now := s.opts.Now()
	nextPayment := app.NextPaymentDate
	if next, moved := utils.RollSchedule(app.NextPaymentDate, app.LastPaymentDate, now); moved {
		nextPayment = &next
	}
	return &domain.RentStanding{
		ApplicationID:   id,
		Status:          utils.ProjectRentStatus(nextPayment, app.LastPaymentDate, now),
		NextPaymentDate: nextPayment,
		LastPaymentDate: app.LastPaymentDate,
		AsOf:            now,
	}, nil
}

// RefreshStandings rolls each enrolled lease's schedule past covered
// installments and stores the projected label. It returns how many leases
// changed.
func (s *billingService) RefreshStandings(ctx context.Context, batchSize int32) (int, error) {
	logger.EnterMethod("billingService.RefreshStandings", "batchSize", batchSize)

	if batchSize <= 0 {
		batchSize = 100
	}
	now := s.opts.Now()
	updated := 0
	var afterID int32
	for {
		apps, err := s.appRepo.ListEnrolled(ctx, afterID, batchSize)
		if err != nil {
			logger.ExitMethodWithError("billingService.RefreshStandings", err)
			return updated, err
		}
		for i := range apps {
			app := &apps[i]
			afterID = app.ID
			if app.NextPaymentDate == nil {
				continue
			}
			next, moved := utils.RollSchedule(app.NextPaymentDate, app.LastPaymentDate, now)
			status := utils.ProjectRentStatus(&next, app.LastPaymentDate, now)
			if !moved && status == app.RentPaymentStatus {
				continue
			}
			if err := s.appRepo.UpdateStanding(ctx, app.ID, next, status, now); err != nil {
				return updated, err
			}
			if status == domain.RentPaymentStatusLate && app.RentPaymentStatus != domain.RentPaymentStatusLate {
				logger.Warn("Rent is late", "applicationID", app.ID, "due", next.Format(utils.DateLayout))
			}
			updated++
		}
		if len(apps) < int(batchSize) {
			break
		}
	}

	logger.ExitMethod("billingService.RefreshStandings", "updated", updated)
	return updated, nil
}
