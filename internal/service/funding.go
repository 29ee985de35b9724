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

	"github.com/shopspring/decimal"
)

type fundingService struct {
	appRepo repository.ApplicationRepository
	tx      repository.TxManager
	gateway gateway.PaymentGateway
	opts    Options
}

func NewFundingService(appRepo repository.ApplicationRepository, tx repository.TxManager, gw gateway.PaymentGateway, opts Options) FundingService {
	return &fundingService{
		appRepo: appRepo,
		tx:      tx,
		gateway: gw,
		opts:    opts.withDefaults(),
	}
}

// AttachFundingSource links a bank account or card to the applicant's gateway
// customer, creating the customer on first use. Nothing is stored locally
// unless every gateway call succeeds.
func (s *fundingService) AttachFundingSource(ctx context.Context, actor domain.Actor, appID int32, kind domain.FundingSourceKind, token string) (*domain.RentalApplication, error) {
	logger.EnterMethod("fundingService.AttachFundingSource", "applicationID", appID, "kind", kind)

	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("unknown funding source kind %q", kind))
	}
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewValidationError("token", "is required")
	}

	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := canAccessApplication(actor, app); err != nil {
		return nil, err
	}
	if app.Status == domain.ApplicationStatusRejected {
		return nil, domain.NewPreconditionError(domain.PreconditionApplicationState, "application was rejected")
	}

	customerRef, created, err := s.ensureCustomer(ctx, app)
	if err != nil {
		logger.ExitMethodWithError("fundingService.AttachFundingSource", err)
		return nil, err
	}

	logger.ExternalServiceCall("payment-gateway", "CreateFundingSource", "applicationID", appID, "kind", kind)
	sourceRef, err := s.gateway.CreateFundingSource(ctx, customerRef, kind, token)
	if err == nil {
		err = s.gateway.AttachSource(ctx, customerRef, sourceRef)
	}
	if err == nil && kind == domain.FundingSourceBank {
		err = s.gateway.SetDefaultSource(ctx, customerRef, sourceRef)
	}
	logger.ExternalServiceResult("payment-gateway", "CreateFundingSource", err, "applicationID", appID)
	if err != nil {
		logger.ExitMethodWithError("fundingService.AttachFundingSource", err)
		return nil, fmt.Errorf("failed to attach %s funding source: %w", kind, err)
	}

	now := s.opts.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if created {
			ok, err := s.appRepo.SetGatewayCustomer(ctx, appID, customerRef, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.NewPreconditionError(domain.PreconditionApplicationState, "payment customer was created concurrently; retry")
			}
		}
		return s.appRepo.SetFundingFlag(ctx, appID, kind, now)
	})
	if err != nil {
		logger.ExitMethodWithError("fundingService.AttachFundingSource", err)
		return nil, err
	}

	logger.Info("Funding source attached", "applicationID", appID, "kind", kind)
	logger.ExitMethod("fundingService.AttachFundingSource", "applicationID", appID)
	return s.appRepo.GetByID(ctx, appID)
}

// ensureCustomer returns the applicant's gateway customer and whether it was
// created by this call.
func (s *fundingService) ensureCustomer(ctx context.Context, app *domain.RentalApplication) (string, bool, error) {
	if app.GatewayCustomerRef != nil {
		return *app.GatewayCustomerRef, false, nil
	}

	logger.ExternalServiceCall("payment-gateway", "CreateCustomer", "applicationID", app.ID)
	ref, err := s.gateway.CreateCustomer(ctx, app.ApplicantEmail, app.ApplicantName, map[string]string{
		"application_id": strconv.Itoa(int(app.ID)),
	})
	logger.ExternalServiceResult("payment-gateway", "CreateCustomer", err, "applicationID", app.ID)
	if err != nil {
		return "", false, fmt.Errorf("failed to create payment customer: %w", err)
	}
	return ref, true, nil
}

// claimDeposit takes the deposit claim or explains why it cannot.
func (s *fundingService) claimDeposit(ctx context.Context, appID int32) error {
	now := s.opts.Now()
	ok, err := s.appRepo.ClaimDepositCharge(ctx, appID, now, now.Add(-s.opts.ClaimTimeout))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return err
	}
	if app.SecurityDepositPaid {
		return domain.NewPreconditionError(domain.PreconditionDepositAlreadyPaid, "security deposit is already paid")
	}
	return domain.NewPreconditionError(domain.PreconditionApplicationState, "a deposit charge is already in progress")
}

func (s *fundingService) releaseDeposit(ctx context.Context, appID int32) {
	if err := s.appRepo.ReleaseDepositClaim(ctx, appID); err != nil {
		logger.Error("Failed to release deposit claim", "applicationID", appID, "error", err)
	}
}

func validateDeposit(app *domain.RentalApplication, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if app.SecurityDepositPaid {
		return domain.NewPreconditionError(domain.PreconditionDepositAlreadyPaid, "security deposit is already paid")
	}
	return nil
}

// ChargeDeposit charges the security deposit to the applicant's card.
func (s *fundingService) ChargeDeposit(ctx context.Context, actor domain.Actor, appID int32, amount decimal.Decimal) (*domain.RentalApplication, error) {
	logger.EnterMethod("fundingService.ChargeDeposit", "applicationID", appID, "amount", amount)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	amount = utils.Round2(amount)
	if err := validateDeposit(app, amount); err != nil {
		return nil, err
	}
	if !app.HasCreditCard || app.GatewayCustomerRef == nil {
		return nil, domain.NewPreconditionError(domain.PreconditionNoCreditCard, "a credit card must be linked first")
	}

	if err := s.claimDeposit(ctx, appID); err != nil {
		return nil, err
	}

	logger.ExternalServiceCall("payment-gateway", "CreateCharge", "applicationID", appID)
	chargeRef, err := s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		CustomerRef: *app.GatewayCustomerRef,
		SourceKind:  domain.FundingSourceCard,
		Amount:      amount,
		Description: "Security deposit",
		Metadata: map[string]string{
			"application_id": strconv.Itoa(int(appID)),
			"type":           "security_deposit",
		},
	})
	logger.ExternalServiceResult("payment-gateway", "CreateCharge", err, "applicationID", appID)
	if err != nil {
		s.releaseDeposit(ctx, appID)
		logger.ExitMethodWithError("fundingService.ChargeDeposit", err)
		return nil, fmt.Errorf("failed to charge security deposit: %w", err)
	}

	ok, err := s.appRepo.MarkDepositPaid(ctx, appID, amount, s.opts.Now())
	if err == nil && !ok {
		err = domain.NewPreconditionError(domain.PreconditionDepositAlreadyPaid, "security deposit is already paid")
	}
	if err != nil {
		logger.Error("Deposit charged but not recorded", "applicationID", appID, "chargeRef", chargeRef, "error", err)
		s.releaseDeposit(ctx, appID)
		return nil, err
	}

	logger.Info("Security deposit charged", "applicationID", appID, "amount", amount, "chargeRef", chargeRef)
	logger.ExitMethod("fundingService.ChargeDeposit", "applicationID", appID)
	return s.appRepo.GetByID(ctx, appID)
}

// RecordDeposit records a deposit paid outside the gateway.
func (s *fundingService) RecordDeposit(ctx context.Context, actor domain.Actor, appID int32, amount decimal.Decimal, note string) (*domain.RentalApplication, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	amount = utils.Round2(amount)
	if err := validateDeposit(app, amount); err != nil {
		return nil, err
	}

	if err := s.claimDeposit(ctx, appID); err != nil {
		return nil, err
	}
	ok, err := s.appRepo.MarkDepositPaid(ctx, appID, amount, s.opts.Now())
	if err != nil {
		s.releaseDeposit(ctx, appID)
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionDepositAlreadyPaid, "security deposit is already paid")
	}

	logger.Info("Security deposit recorded manually", "applicationID", appID, "amount", amount, "by", actor.Email, "note", note)
	return s.appRepo.GetByID(ctx, appID)
}
