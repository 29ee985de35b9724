package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// foreignKeyViolation is the SQLSTATE for a RESTRICT reference blocking a delete.
const foreignKeyViolation pq.ErrorCode = "23503"

type maintenanceRequestRepository struct {
	db *sql.DB
}

func NewMaintenanceRequestRepository(db *sql.DB) repository.MaintenanceRequestRepository {
	return &maintenanceRequestRepository{db: db}
}

const requestColumns = `
	id, requester_name, requester_email, requester_phone, issue, property_id, property_address,
	status, user_type, submitted_by, requires_approval, COALESCE(approval_status, ''),
	approved_by, approval_date, is_deleted, deleted_at, deleted_by,
	proposed_budget, actual_cost, amount_to_bill, admin_notes, photo_key,
	created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.MaintenanceRequest, error) {
	req := &domain.MaintenanceRequest{}
	err := row.Scan(
		&req.ID, &req.RequesterName, &req.RequesterEmail, &req.RequesterPhone, &req.Issue, &req.PropertyID, &req.PropertyAddress,
		&req.Status, &req.UserType, &req.SubmittedBy, &req.RequiresApproval, &req.ApprovalStatus,
		&req.ApprovedBy, &req.ApprovalDate, &req.IsDeleted, &req.DeletedAt, &req.DeletedBy,
		&req.ProposedBudget, &req.ActualCost, &req.AmountToBill, &req.AdminNotes, &req.PhotoKey,
		&req.CreatedBy, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *maintenanceRequestRepository) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	logger.EnterMethod("maintenanceRequestRepository.Create", "requester", req.RequesterEmail, "userType", req.UserType)

	query := `
		INSERT INTO maintenance_requests (
			requester_name, requester_email, requester_phone, issue, property_id, property_address,
			status, user_type, submitted_by, requires_approval, approval_status,
			proposed_budget, admin_notes, photo_key, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		req.RequesterName, req.RequesterEmail, req.RequesterPhone, req.Issue, req.PropertyID, req.PropertyAddress,
		req.Status, req.UserType, req.SubmittedBy, req.RequiresApproval, nullString(string(req.ApprovalStatus)),
		req.ProposedBudget, req.AdminNotes, req.PhotoKey, req.CreatedBy, req.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.Create", err)
		return err
	}

	req.UpdatedAt = req.CreatedAt
	logger.ExitMethod("maintenanceRequestRepository.Create", "requestID", req.ID)
	return nil
}

func (r *maintenanceRequestRepository) GetByID(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceRequestRepository.GetByID", "requestID", id)

	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE id = $1`
	req, err := scanRequest(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.GetByID", err, "requestID", id)
		return nil, notFound(err, "maintenance request", id)
	}

	logger.ExitMethod("maintenanceRequestRepository.GetByID", "requestID", id)
	return req, nil
}

func (r *maintenanceRequestRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceRequestRepository.GetByIDForUpdate", "requestID", id)

	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.GetByIDForUpdate", err, "requestID", id)
		return nil, notFound(err, "maintenance request", id)
	}

	logger.ExitMethod("maintenanceRequestRepository.GetByIDForUpdate", "requestID", id)
	return req, nil
}

func (r *maintenanceRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error) {
	logger.EnterMethod("maintenanceRequestRepository.List", "status", filter.Status, "onlyDeleted", filter.OnlyDeleted)

	where := ` FROM maintenance_requests WHERE 1=1`
	args := []any{}
	argIdx := 1

	switch {
	case filter.OnlyDeleted:
		where += ` AND is_deleted = true`
	case !filter.IncludeDeleted:
		where += ` AND is_deleted = false`
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	var count int32
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*)`+where, args...).Scan(&count); err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.List", err)
		return nil, 0, err
	}

	limit, offset := pageOffset(filter.Page, filter.PageSize)
	query := `SELECT ` + requestColumns + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.List", err)
		return nil, 0, err
	}
	defer rows.Close()

	var requests []domain.MaintenanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	logger.ExitMethod("maintenanceRequestRepository.List", "count", len(requests), "total", count)
	return requests, count, nil
}

func (r *maintenanceRequestRepository) UpdateDetails(ctx context.Context, id int32, upd domain.RequestUpdate, at time.Time) (bool, error) {
	logger.EnterMethod("maintenanceRequestRepository.UpdateDetails", "requestID", id)

	query := `
		UPDATE maintenance_requests SET
			status = COALESCE($1, status),
			admin_notes = COALESCE($2, admin_notes),
			photo_key = COALESCE($3, photo_key),
			updated_at = $4
		WHERE id = $5 AND is_deleted = false
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, upd.Status, upd.AdminNotes, upd.PhotoKey, at, id)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.UpdateDetails", err, "requestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("maintenanceRequestRepository.UpdateDetails", "requestID", id, "updated", ok)
	return ok, err
}

func (r *maintenanceRequestRepository) UpdateCosts(ctx context.Context, id int32, actualCost, amountToBill decimal.NullDecimal, at time.Time) error {
	logger.EnterMethod("maintenanceRequestRepository.UpdateCosts", "requestID", id)

	query := `UPDATE maintenance_requests SET actual_cost = $1, amount_to_bill = $2, updated_at = $3 WHERE id = $4`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, actualCost, amountToBill, at, id)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.UpdateCosts", err, "requestID", id)
		return err
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return domain.NotFound("maintenance request", id)
	}

	logger.ExitMethod("maintenanceRequestRepository.UpdateCosts", "requestID", id)
	return nil
}

func (r *maintenanceRequestRepository) MarkDeleted(ctx context.Context, id int32, by string, at time.Time) (bool, error) {
	logger.EnterMethod("maintenanceRequestRepository.MarkDeleted", "requestID", id, "by", by)

	query := `
		UPDATE maintenance_requests
		SET is_deleted = true, deleted_at = $1, deleted_by = $2, updated_at = $1
		WHERE id = $3 AND is_deleted = false
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, at, by, id)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.MarkDeleted", err, "requestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("maintenanceRequestRepository.MarkDeleted", "requestID", id, "marked", ok)
	return ok, err
}

func (r *maintenanceRequestRepository) ClearDeleted(ctx context.Context, id int32, at time.Time) (bool, error) {
	logger.EnterMethod("maintenanceRequestRepository.ClearDeleted", "requestID", id)

	query := `
		UPDATE maintenance_requests
		SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, updated_at = $1
		WHERE id = $2 AND is_deleted = true
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.ClearDeleted", err, "requestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("maintenanceRequestRepository.ClearDeleted", "requestID", id, "cleared", ok)
	return ok, err
}

func (r *maintenanceRequestRepository) DecideApproval(ctx context.Context, id int32, status domain.ApprovalStatus, by string, at time.Time) (bool, error) {
	logger.EnterMethod("maintenanceRequestRepository.DecideApproval", "requestID", id, "status", status)

	query := `
		UPDATE maintenance_requests
		SET approval_status = $1, approved_by = $2, approval_date = $3, updated_at = $3
		WHERE id = $4 AND requires_approval = true AND approval_status = 'pending-approval' AND is_deleted = false
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, status, by, at, id)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.DecideApproval", err, "requestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("maintenanceRequestRepository.DecideApproval", "requestID", id, "decided", ok)
	return ok, err
}

func (r *maintenanceRequestRepository) HardDelete(ctx context.Context, id int32) error {
	logger.EnterMethod("maintenanceRequestRepository.HardDelete", "requestID", id)

	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM maintenance_requests WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return domain.NewPreconditionError(domain.PreconditionInvoiced, "request has a payment request")
		}
		logger.ExitMethodWithError("maintenanceRequestRepository.HardDelete", err, "requestID", id)
		return err
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return domain.NotFound("maintenance request", id)
	}

	logger.ExitMethod("maintenanceRequestRepository.HardDelete", "requestID", id)
	return nil
}

func (r *maintenanceRequestRepository) ListExpiredDeleted(ctx context.Context, deletedBefore time.Time, limit int32) ([]domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceRequestRepository.ListExpiredDeleted", "deletedBefore", deletedBefore)

	query := `SELECT ` + requestColumns + `
		FROM maintenance_requests
		WHERE is_deleted = true AND deleted_at <= $1
		  AND NOT EXISTS (SELECT 1 FROM payment_requests pr WHERE pr.manager_request_id = maintenance_requests.id)
		ORDER BY deleted_at ASC
		LIMIT $2`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, deletedBefore, limit)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.ListExpiredDeleted", err)
		return nil, err
	}
	defer rows.Close()

	var requests []domain.MaintenanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	logger.ExitMethod("maintenanceRequestRepository.ListExpiredDeleted", "count", len(requests))
	return requests, rows.Err()
}

func (r *maintenanceRequestRepository) AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	logger.EnterMethod("maintenanceRequestRepository.AppendMessage", "requestID", msg.RequestID, "internal", msg.IsInternal)

	query := `
		INSERT INTO request_messages (request_id, sender_email, sender_role, is_internal, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		msg.RequestID, msg.SenderEmail, msg.SenderRole, msg.IsInternal, msg.Text, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.AppendMessage", err, "requestID", msg.RequestID)
		return err
	}

	logger.ExitMethod("maintenanceRequestRepository.AppendMessage", "messageID", msg.ID)
	return nil
}

func (r *maintenanceRequestRepository) ListMessages(ctx context.Context, requestID int32, includeInternal bool) ([]domain.ConversationMessage, error) {
	logger.EnterMethod("maintenanceRequestRepository.ListMessages", "requestID", requestID, "includeInternal", includeInternal)

	query := `
		SELECT id, request_id, sender_email, sender_role, is_internal, body, created_at
		FROM request_messages
		WHERE request_id = $1 AND ($2 OR is_internal = false)
		ORDER BY id ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, requestID, includeInternal)
	if err != nil {
		logger.ExitMethodWithError("maintenanceRequestRepository.ListMessages", err, "requestID", requestID)
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		if err := rows.Scan(&m.ID, &m.RequestID, &m.SenderEmail, &m.SenderRole, &m.IsInternal, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	logger.ExitMethod("maintenanceRequestRepository.ListMessages", "count", len(msgs))
	return msgs, rows.Err()
}
