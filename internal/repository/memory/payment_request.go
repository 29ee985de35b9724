package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type paymentRequestRepository struct {
	s *Store
}

func (r *paymentRequestRepository) Upsert(ctx context.Context, in domain.InvoiceUpsert, at time.Time) (*domain.InvoiceUpsertResult, error) {
	defer r.s.lock(ctx)()

	for id, pr := range r.s.d.paymentReqs {
		if pr.ManagerRequestID != in.ManagerRequestID {
			continue
		}
		previous := pr.Status
		pr.OwnerID = in.OwnerID
		pr.PropertyID = in.PropertyID
		pr.Amount = in.Amount
		pr.ActualCost = in.ActualCost
		pr.ProposedBudget = in.ProposedBudget
		pr.Status = domain.PaymentRequestStatusPending
		pr.PaidDate = nil
		pr.PaidAmount = decimal.NullDecimal{}
		pr.UpdatedAt = at
		r.s.d.paymentReqs[id] = pr
		return &domain.InvoiceUpsertResult{PaymentRequest: &pr, Created: false, PreviousStatus: previous}, nil
	}

	r.s.d.nextPaymentReq++
	pr := domain.PaymentRequest{
		ID:               r.s.d.nextPaymentReq,
		ManagerRequestID: in.ManagerRequestID,
		OwnerID:          in.OwnerID,
		PropertyID:       in.PropertyID,
		Amount:           in.Amount,
		ActualCost:       in.ActualCost,
		ProposedBudget:   in.ProposedBudget,
		Status:           domain.PaymentRequestStatusPending,
		DueDate:          in.DueDate,
		CreatedBy:        in.CreatedBy,
		CreatedAt:        at,
		UpdatedAt:        at,
	}
	r.s.d.paymentReqs[pr.ID] = pr
	return &domain.InvoiceUpsertResult{PaymentRequest: &pr, Created: true}, nil
}

func (r *paymentRequestRepository) GetByID(ctx context.Context, id int32) (*domain.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	pr, ok := r.s.d.paymentReqs[id]
	if !ok {
		return nil, domain.NotFound("payment request", id)
	}
	return &pr, nil
}

func (r *paymentRequestRepository) GetByManagerRequestID(ctx context.Context, requestID int32) (*domain.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	for _, pr := range r.s.d.paymentReqs {
		if pr.ManagerRequestID == requestID {
			return &pr, nil
		}
	}
	return nil, fmt.Errorf("payment request for maintenance request %d: %w", requestID, domain.ErrNotFound)
}

func (r *paymentRequestRepository) List(ctx context.Context, filter domain.PaymentRequestFilter) ([]domain.PaymentRequest, int32, error) {
	defer r.s.lock(ctx)()

	var out []domain.PaymentRequest
	for _, pr := range r.s.d.paymentReqs {
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		if filter.OwnerID != 0 && pr.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, pr)
	}
	sortByDue(out)

	start, end := pageBounds(len(out), filter.Page, filter.PageSize)
	return out[start:end], int32(len(out)), nil
}

func (r *paymentRequestRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int32) ([]domain.PaymentRequest, error) {
	defer r.s.lock(ctx)()

	var out []domain.PaymentRequest
	for _, pr := range r.s.d.paymentReqs {
		if pr.Status == domain.PaymentRequestStatusPending && pr.DueDate.Before(asOf) {
			out = append(out, pr)
		}
	}
	sortByDue(out)
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func sortByDue(prs []domain.PaymentRequest) {
	sort.Slice(prs, func(i, j int) bool {
		if prs[i].DueDate.Equal(prs[j].DueDate) {
			return prs[i].ID < prs[j].ID
		}
		return prs[i].DueDate.Before(prs[j].DueDate)
	})
}

func (r *paymentRequestRepository) MarkPaid(ctx context.Context, id int32, amount decimal.Decimal, paidDate time.Time, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	pr, ok := r.s.d.paymentReqs[id]
	if !ok || !pr.Open() {
		return false, nil
	}
	pr.Status = domain.PaymentRequestStatusPaid
	pr.PaidAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
	pr.PaidDate = &paidDate
	pr.UpdatedAt = at
	r.s.d.paymentReqs[id] = pr
	return true, nil
}

func (r *paymentRequestRepository) Transition(ctx context.Context, id int32, from []domain.PaymentRequestStatus, to domain.PaymentRequestStatus, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	pr, ok := r.s.d.paymentReqs[id]
	if !ok || !slices.Contains(from, pr.Status) {
		return false, nil
	}
	pr.Status = to
	pr.UpdatedAt = at
	r.s.d.paymentReqs[id] = pr
	return true, nil
}

func (r *paymentRequestRepository) CreateAction(ctx context.Context, action *domain.PaymentRequestAction) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.d.paymentReqs[action.PaymentRequestID]; !ok {
		return domain.NotFound("payment request", action.PaymentRequestID)
	}
	r.s.d.nextAction++
	action.ID = r.s.d.nextAction
	r.s.d.actions[action.PaymentRequestID] = append(r.s.d.actions[action.PaymentRequestID], *action)
	return nil
}

func (r *paymentRequestRepository) ListActions(ctx context.Context, paymentRequestID int32) ([]domain.PaymentRequestAction, error) {
	defer r.s.lock(ctx)()

	return append([]domain.PaymentRequestAction(nil), r.s.d.actions[paymentRequestID]...), nil
}

func (r *paymentRequestRepository) LastActionAt(ctx context.Context, paymentRequestID int32, actionType domain.PaymentRequestActionType) (*time.Time, error) {
	defer r.s.lock(ctx)()

	var last *time.Time
	for _, a := range r.s.d.actions[paymentRequestID] {
		if a.ActionType != actionType {
			continue
		}
		if last == nil || a.CreatedAt.After(*last) {
			t := a.CreatedAt
			last = &t
		}
	}
	return last, nil
}
