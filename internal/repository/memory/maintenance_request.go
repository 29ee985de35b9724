package memory

import (
	"context"
	"sort"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type maintenanceRequestRepository struct {
	s *Store
}

func (r *maintenanceRequestRepository) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	defer r.s.lock(ctx)()

	r.s.d.nextRequest++
	req.ID = r.s.d.nextRequest
	req.UpdatedAt = req.CreatedAt
	r.s.d.requests[req.ID] = *req
	return nil
}

func (r *maintenanceRequestRepository) GetByID(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok {
		return nil, domain.NotFound("maintenance request", id)
	}
	return &req, nil
}

// GetByIDForUpdate relies on WithinTx serialising transactions.
func (r *maintenanceRequestRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *maintenanceRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error) {
	defer r.s.lock(ctx)()

	var out []domain.MaintenanceRequest
	for _, req := range r.s.d.requests {
		switch {
		case filter.OnlyDeleted && !req.IsDeleted:
			continue
		case !filter.OnlyDeleted && !filter.IncludeDeleted && req.IsDeleted:
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	start, end := pageBounds(len(out), filter.Page, filter.PageSize)
	return out[start:end], int32(len(out)), nil
}

func (r *maintenanceRequestRepository) UpdateDetails(ctx context.Context, id int32, upd domain.RequestUpdate, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok || req.IsDeleted {
		return false, nil
	}
	if upd.Status != nil {
		req.Status = *upd.Status
	}
	if upd.AdminNotes != nil {
		req.AdminNotes = *upd.AdminNotes
	}
	if upd.PhotoKey != nil {
		req.PhotoKey = *upd.PhotoKey
	}
	req.UpdatedAt = at
	r.s.d.requests[id] = req
	return true, nil
}

func (r *maintenanceRequestRepository) UpdateCosts(ctx context.Context, id int32, actualCost, amountToBill decimal.NullDecimal, at time.Time) error {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok {
		return domain.NotFound("maintenance request", id)
	}
	req.ActualCost = actualCost
	req.AmountToBill = amountToBill
	req.UpdatedAt = at
	r.s.d.requests[id] = req
	return nil
}

func (r *maintenanceRequestRepository) MarkDeleted(ctx context.Context, id int32, by string, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok || req.IsDeleted {
		return false, nil
	}
	req.IsDeleted = true
	req.DeletedAt = &at
	req.DeletedBy = &by
	req.UpdatedAt = at
	r.s.d.requests[id] = req
	return true, nil
}

func (r *maintenanceRequestRepository) ClearDeleted(ctx context.Context, id int32, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok || !req.IsDeleted {
		return false, nil
	}
	req.IsDeleted = false
	req.DeletedAt = nil
	req.DeletedBy = nil
	req.UpdatedAt = at
	r.s.d.requests[id] = req
	return true, nil
}

func (r *maintenanceRequestRepository) DecideApproval(ctx context.Context, id int32, status domain.ApprovalStatus, by string, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.d.requests[id]
	if !ok || req.IsDeleted || !req.RequiresApproval || req.ApprovalStatus != domain.ApprovalStatusPendingApproval {
		return false, nil
	}
	req.ApprovalStatus = status
	req.ApprovedBy = &by
	req.ApprovalDate = &at
	req.UpdatedAt = at
	r.s.d.requests[id] = req
	return true, nil
}

// HardDelete cascades to the conversation log. A request that was invoiced
// cannot be removed.
func (r *maintenanceRequestRepository) HardDelete(ctx context.Context, id int32) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.d.requests[id]; !ok {
		return domain.NotFound("maintenance request", id)
	}
	if r.invoiced(id) {
		return domain.NewPreconditionError(domain.PreconditionInvoiced, "request has a payment request")
	}
	delete(r.s.d.requests, id)
	delete(r.s.d.messages, id)
	return nil
}

func (r *maintenanceRequestRepository) invoiced(id int32) bool {
	for _, pr := range r.s.d.paymentReqs {
		if pr.ManagerRequestID == id {
			return true
		}
	}
	return false
}

func (r *maintenanceRequestRepository) ListExpiredDeleted(ctx context.Context, deletedBefore time.Time, limit int32) ([]domain.MaintenanceRequest, error) {
	defer r.s.lock(ctx)()

	var out []domain.MaintenanceRequest
	for _, req := range r.s.d.requests {
		if req.IsDeleted && req.DeletedAt != nil && !req.DeletedAt.After(deletedBefore) && !r.invoiced(req.ID) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(*out[j].DeletedAt) })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (r *maintenanceRequestRepository) AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.d.requests[msg.RequestID]; !ok {
		return domain.NotFound("maintenance request", msg.RequestID)
	}
	r.s.d.nextMessage++
	msg.ID = r.s.d.nextMessage
	r.s.d.messages[msg.RequestID] = append(r.s.d.messages[msg.RequestID], *msg)
	return nil
}

func (r *maintenanceRequestRepository) ListMessages(ctx context.Context, requestID int32, includeInternal bool) ([]domain.ConversationMessage, error) {
	defer r.s.lock(ctx)()

	var out []domain.ConversationMessage
	for _, m := range r.s.d.messages[requestID] {
		if m.IsInternal && !includeInternal {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
