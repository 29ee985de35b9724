package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
	"rentops-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type invoiceService struct {
	requestRepo repository.MaintenanceRequestRepository
	paymentRepo repository.PaymentRequestRepository
	ownerRepo   repository.OwnerRepository
	tx          repository.TxManager
	emailSvc    EmailService
	opts        Options
}

func NewInvoiceService(
	requestRepo repository.MaintenanceRequestRepository,
	paymentRepo repository.PaymentRequestRepository,
	ownerRepo repository.OwnerRepository,
	tx repository.TxManager,
	emailSvc EmailService,
	opts Options,
) InvoiceService {
	return &invoiceService{
		requestRepo: requestRepo,
		paymentRepo: paymentRepo,
		ownerRepo:   ownerRepo,
		tx:          tx,
		emailSvc:    emailSvc,
		opts:        opts.withDefaults(),
	}
}

func actorEmail(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}

// SetCosts records the admin's cost figures and, when there is a positive
// amount to bill for an owner-side request, creates or re-bills the request's
// single payment request. Costs, invoice and audit trail commit together; the
// owner is emailed after commit.
func (s *invoiceService) SetCosts(ctx context.Context, actor domain.Actor, requestID int32, entry domain.CostEntry) (*CostResult, error) {
	logger.EnterMethod("invoiceService.SetCosts", "requestID", requestID, "actor", actor.Email)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if entry.ActualCost != nil && entry.ActualCost.IsNegative() {
		return nil, domain.NewValidationError("actual_cost", "must not be negative")
	}
	if entry.AmountToBill != nil && entry.AmountToBill.IsNegative() {
		return nil, domain.NewValidationError("amount_to_bill", "must not be negative")
	}

	now := s.opts.Now()
	result := &CostResult{}
	var (
		owner    *domain.Owner
		property *domain.Property
		upserted *domain.InvoiceUpsertResult
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.requestRepo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.IsDeleted {
			return domain.NewPreconditionError(domain.PreconditionRequestDeleted, "recover the request before entering costs")
		}

		actual, bill := req.ActualCost, req.AmountToBill
		if entry.ActualCost != nil {
			actual = utils.NullOf(utils.Round2(*entry.ActualCost))
		}
		if entry.AmountToBill != nil {
			bill = utils.NullOf(utils.Round2(*entry.AmountToBill))
		}
		if err := s.requestRepo.UpdateCosts(ctx, requestID, actual, bill, now); err != nil {
			return err
		}

		// Only an amount entered in this call bills; editing the actual cost
		// alone never touches an existing invoice.
		if entry.AmountToBill == nil || !bill.Decimal.IsPositive() {
			return nil
		}
		if !req.UserType.Billable() {
			logger.Debug("Invoice suppressed for requester type", "requestID", requestID, "userType", req.UserType)
			return nil
		}
		if req.PropertyID == nil {
			logger.Warn("Billable request has no property; no invoice created", "requestID", requestID)
			return nil
		}
		property, err = s.ownerRepo.GetProperty(ctx, *req.PropertyID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Property for billable request not found; no invoice created", "requestID", requestID, "propertyID", *req.PropertyID)
			return nil
		}
		if err != nil {
			return err
		}
		owner, err = s.ownerRepo.GetByID(ctx, property.OwnerID)
		if err != nil {
			return err
		}

		upserted, err = s.paymentRepo.Upsert(ctx, domain.InvoiceUpsert{
			ManagerRequestID: requestID,
			OwnerID:          owner.ID,
			PropertyID:       property.ID,
			Amount:           bill.Decimal,
			ActualCost:       actual,
			ProposedBudget:   req.ProposedBudget,
			DueDate:          utils.DateOnly(now).AddDate(0, 0, s.opts.InvoiceDueDays),
			CreatedBy:        actor.Email,
		}, now)
		if err != nil {
			return err
		}
		return s.recordUpsertActions(ctx, actor, upserted, now)
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.SetCosts", err)
		return nil, err
	}

	result.Request, err = s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if upserted != nil {
		result.PaymentRequest = upserted.PaymentRequest
		result.Created = upserted.Created
		s.notifyOwner(ctx, owner, property, result.Request, upserted)
	}

	logger.ExitMethod("invoiceService.SetCosts", "requestID", requestID, "invoiced", upserted != nil)
	return result, nil
}

func (s *invoiceService) recordUpsertActions(ctx context.Context, actor domain.Actor, res *domain.InvoiceUpsertResult, at time.Time) error {
	pr := res.PaymentRequest
	if res.Created {
		logger.Info("Payment request created", "paymentRequestID", pr.ID, "requestID", pr.ManagerRequestID, "amount", pr.Amount)
		return s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
			PaymentRequestID: pr.ID,
			ActorEmail:       actorEmail(actor.Email),
			ActionType:       domain.PaymentRequestActionCreated,
			ToStatus:         domain.PaymentRequestStatusPending,
			Notes:            "billed " + utils.FormatMoney(pr.Amount),
			CreatedAt:        at,
		})
	}

	if err := s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
		PaymentRequestID: pr.ID,
		ActorEmail:       actorEmail(actor.Email),
		ActionType:       domain.PaymentRequestActionRebilled,
		Notes:            "re-billed " + utils.FormatMoney(pr.Amount),
		CreatedAt:        at,
	}); err != nil {
		return err
	}
	if res.PreviousStatus == domain.PaymentRequestStatusPending {
		return nil
	}

	if res.PreviousStatus == domain.PaymentRequestStatusPaid {
		logger.Warn("Re-billing a paid payment request; it is pending again", "paymentRequestID", pr.ID, "requestID", pr.ManagerRequestID)
	}
	return s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
		PaymentRequestID: pr.ID,
		ActorEmail:       actorEmail(actor.Email),
		ActionType:       domain.PaymentRequestActionStatusReset,
		FromStatus:       res.PreviousStatus,
		ToStatus:         domain.PaymentRequestStatusPending,
		Notes:            "status reset by re-bill",
		CreatedAt:        at,
	})
}

func (s *invoiceService) notifyOwner(ctx context.Context, owner *domain.Owner, property *domain.Property, req *domain.MaintenanceRequest, res *domain.InvoiceUpsertResult) {
	pr := res.PaymentRequest
	notice := InvoiceNotice{
		PaymentRequestID: pr.ID,
		PropertyName:     property.Name,
		PropertyAddress:  property.Address,
		Description:      req.Issue,
		ProposedBudget:   pr.ProposedBudget,
		ActualCost:       pr.ActualCost,
		AmountDue:        pr.Amount,
		DueDate:          pr.DueDate,
		Rebilled:         !res.Created,
	}
	if err := s.emailSvc.SendPaymentRequestNotice(ctx, owner.Email, s.opts.AdminEmail, notice); err != nil {
		logger.Warn("Failed to send payment request notice", "paymentRequestID", pr.ID, "owner", owner.Email, "error", err)
	}
}

func (s *invoiceService) GetPaymentRequest(ctx context.Context, actor domain.Actor, id int32) (*domain.PaymentRequest, error) {
	pr, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, actor, pr); err != nil {
		return nil, err
	}
	return pr, nil
}

// authorizeOwner admits admins and the owner being billed.
func (s *invoiceService) authorizeOwner(ctx context.Context, actor domain.Actor, pr *domain.PaymentRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	owner, err := s.ownerRepo.GetByID(ctx, pr.OwnerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if owner != nil && sameEmail(actor.Email, owner.Email) {
		return nil
	}
	return fmt.Errorf("%w: payment request %d is billed to another owner", domain.ErrForbidden, pr.ID)
}

func (s *invoiceService) ListPaymentRequests(ctx context.Context, actor domain.Actor, filter domain.PaymentRequestFilter) ([]domain.PaymentRequest, int32, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.paymentRepo.List(ctx, filter)
}

func (s *invoiceService) ListActions(ctx context.Context, actor domain.Actor, id int32) ([]domain.PaymentRequestAction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.paymentRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListActions(ctx, id)
}

func (s *invoiceService) MarkPaid(ctx context.Context, actor domain.Actor, id int32, paidAmount decimal.Decimal, paidDate *time.Time) (*domain.PaymentRequest, error) {
	logger.EnterMethod("invoiceService.MarkPaid", "paymentRequestID", id)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !paidAmount.IsPositive() {
		return nil, domain.NewValidationError("paid_amount", "must be greater than zero")
	}
	paidAmount = utils.Round2(paidAmount)

	pr, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.Open() {
		return nil, domain.NewPreconditionError(domain.PreconditionPaymentRequestState, fmt.Sprintf("payment request is %s", pr.Status))
	}

	now := s.opts.Now()
	paid := utils.DateOnly(now)
	if paidDate != nil {
		paid = utils.DateOnly(*paidDate)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.paymentRepo.MarkPaid(ctx, id, paidAmount, paid, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewPreconditionError(domain.PreconditionPaymentRequestState, "payment request changed concurrently")
		}
		notes := "paid " + utils.FormatMoney(paidAmount)
		if !paidAmount.Equal(pr.Amount) {
			notes += " against " + utils.FormatMoney(pr.Amount) + " due"
		}
		return s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
			PaymentRequestID: id,
			ActorEmail:       actorEmail(actor.Email),
			ActionType:       domain.PaymentRequestActionPaid,
			FromStatus:       pr.Status,
			ToStatus:         domain.PaymentRequestStatusPaid,
			Notes:            notes,
			CreatedAt:        now,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.MarkPaid", err)
		return nil, err
	}

	logger.Info("Payment request paid", "paymentRequestID", id, "amount", paidAmount)
	logger.ExitMethod("invoiceService.MarkPaid", "paymentRequestID", id)
	return s.paymentRepo.GetByID(ctx, id)
}

func (s *invoiceService) Cancel(ctx context.Context, actor domain.Actor, id int32, reason string) (*domain.PaymentRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id,
		[]domain.PaymentRequestStatus{domain.PaymentRequestStatusPending, domain.PaymentRequestStatusDisputed},
		domain.PaymentRequestStatusCancelled, domain.PaymentRequestActionCancelled, reason)
}

// Dispute is open to admins and the billed owner.
func (s *invoiceService) Dispute(ctx context.Context, actor domain.Actor, id int32, reason string) (*domain.PaymentRequest, error) {
	pr, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, actor, pr); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	return s.transition(ctx, actor, id,
		[]domain.PaymentRequestStatus{domain.PaymentRequestStatusPending},
		domain.PaymentRequestStatusDisputed, domain.PaymentRequestActionDisputed, reason)
}

func (s *invoiceService) transition(ctx context.Context, actor domain.Actor, id int32, from []domain.PaymentRequestStatus, to domain.PaymentRequestStatus, action domain.PaymentRequestActionType, notes string) (*domain.PaymentRequest, error) {
	logger.EnterMethod("invoiceService.transition", "paymentRequestID", id, "to", to)

	pr, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.paymentRepo.Transition(ctx, id, from, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewPreconditionError(domain.PreconditionPaymentRequestState,
				fmt.Sprintf("cannot move a %s payment request to %s", pr.Status, to))
		}
		return s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
			PaymentRequestID: id,
			ActorEmail:       actorEmail(actor.Email),
			ActionType:       action,
			FromStatus:       pr.Status,
			ToStatus:         to,
			Notes:            notes,
			CreatedAt:        now,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.transition", err)
		return nil, err
	}

	logger.ExitMethod("invoiceService.transition", "paymentRequestID", id, "to", to)
	return s.paymentRepo.GetByID(ctx, id)
}

// SendOverdueReminders emails the owner of each overdue payment request at
// most once per reminder interval. It returns the number of reminders sent.
func (s *invoiceService) SendOverdueReminders(ctx context.Context, batchSize int32) (int, error) {
	logger.EnterMethod("invoiceService.SendOverdueReminders", "batchSize", batchSize)

	now := s.opts.Now()
	overdue, err := s.paymentRepo.ListOverdue(ctx, utils.DateOnly(now), batchSize)
	if err != nil {
		logger.ExitMethodWithError("invoiceService.SendOverdueReminders", err)
		return 0, err
	}

	sent := 0
	for i := range overdue {
		pr := &overdue[i]
		last, err := s.paymentRepo.LastActionAt(ctx, pr.ID, domain.PaymentRequestActionReminder)
		if err != nil {
			return sent, err
		}
		if last != nil && now.Sub(*last) < s.opts.ReminderInterval {
			continue
		}

		owner, err := s.ownerRepo.GetByID(ctx, pr.OwnerID)
		if err != nil {
			logger.Warn("Skipping reminder; owner not found", "paymentRequestID", pr.ID, "ownerID", pr.OwnerID, "error", err)
			continue
		}
		notice := InvoiceNotice{
			PaymentRequestID: pr.ID,
			AmountDue:        pr.Amount,
			DueDate:          pr.DueDate,
			ActualCost:       pr.ActualCost,
			ProposedBudget:   pr.ProposedBudget,
		}
		if prop, err := s.ownerRepo.GetProperty(ctx, pr.PropertyID); err == nil {
			notice.PropertyName = prop.Name
			notice.PropertyAddress = prop.Address
		}
		if req, err := s.requestRepo.GetByID(ctx, pr.ManagerRequestID); err == nil {
			notice.Description = req.Issue
		}

		if err := s.emailSvc.SendPaymentReminder(ctx, owner.Email, notice); err != nil {
			logger.Warn("Failed to send payment reminder", "paymentRequestID", pr.ID, "owner", owner.Email, "error", err)
			continue
		}
		if err := s.paymentRepo.CreateAction(ctx, &domain.PaymentRequestAction{
			PaymentRequestID: pr.ID,
			ActionType:       domain.PaymentRequestActionReminder,
			FromStatus:       pr.Status,
			ToStatus:         pr.Status,
			Notes:            "reminder sent to " + owner.Email,
			CreatedAt:        now,
		}); err != nil {
			return sent, err
		}
		sent++
	}

	logger.ExitMethod("invoiceService.SendOverdueReminders", "sent", sent)
	return sent, nil
}
