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

type paymentRequestRepository struct {
	db *sql.DB
}

func NewPaymentRequestRepository(db *sql.DB) repository.PaymentRequestRepository {
	return &paymentRequestRepository{db: db}
}

const paymentRequestColumns = `
	id, manager_request_id, owner_id, property_id, amount, actual_cost, proposed_budget,
	status, due_date, paid_date, paid_amount, created_by, created_at, updated_at`

func scanPaymentRequest(row rowScanner, extra ...any) (*domain.PaymentRequest, error) {
	pr := &domain.PaymentRequest{}
	dest := []any{
		&pr.ID, &pr.ManagerRequestID, &pr.OwnerID, &pr.PropertyID, &pr.Amount, &pr.ActualCost, &pr.ProposedBudget,
		&pr.Status, &pr.DueDate, &pr.PaidDate, &pr.PaidAmount, &pr.CreatedBy, &pr.CreatedAt, &pr.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *paymentRequestRepository) Upsert(ctx context.Context, in domain.InvoiceUpsert, at time.Time) (*domain.InvoiceUpsertResult, error) {
	logger.EnterMethod("paymentRequestRepository.Upsert", "managerRequestID", in.ManagerRequestID, "amount", in.Amount)

	// prev reads the row as it was before this statement; xmax = 0 marks a fresh insert.
	query := `
		WITH prev AS (
			SELECT status FROM payment_requests WHERE manager_request_id = $1
		)
		INSERT INTO payment_requests (
			manager_request_id, owner_id, property_id, amount, actual_cost, proposed_budget,
			status, due_date, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9, $9)
		ON CONFLICT (manager_request_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			property_id = EXCLUDED.property_id,
			amount = EXCLUDED.amount,
			actual_cost = EXCLUDED.actual_cost,
			proposed_budget = EXCLUDED.proposed_budget,
			status = 'pending',
			paid_date = NULL,
			paid_amount = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + paymentRequestColumns + `, (xmax = 0), COALESCE((SELECT status FROM prev), '')
	`

	var created bool
	var previous domain.PaymentRequestStatus
	pr, err := scanPaymentRequest(conn(ctx, r.db).QueryRowContext(ctx, query,
		in.ManagerRequestID, in.OwnerID, in.PropertyID, in.Amount, in.ActualCost, in.ProposedBudget,
		in.DueDate, in.CreatedBy, at,
	), &created, &previous)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.Upsert", err, "managerRequestID", in.ManagerRequestID)
		return nil, err
	}

	logger.ExitMethod("paymentRequestRepository.Upsert", "paymentRequestID", pr.ID, "created", created, "previousStatus", previous)
	return &domain.InvoiceUpsertResult{PaymentRequest: pr, Created: created, PreviousStatus: previous}, nil
}

func (r *paymentRequestRepository) GetByID(ctx context.Context, id int32) (*domain.PaymentRequest, error) {
	logger.EnterMethod("paymentRequestRepository.GetByID", "paymentRequestID", id)

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`
	pr, err := scanPaymentRequest(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.GetByID", err, "paymentRequestID", id)
		return nil, notFound(err, "payment request", id)
	}

	logger.ExitMethod("paymentRequestRepository.GetByID", "paymentRequestID", id)
	return pr, nil
}

func (r *paymentRequestRepository) GetByManagerRequestID(ctx context.Context, requestID int32) (*domain.PaymentRequest, error) {
	logger.EnterMethod("paymentRequestRepository.GetByManagerRequestID", "managerRequestID", requestID)

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE manager_request_id = $1`
	pr, err := scanPaymentRequest(conn(ctx, r.db).QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.ExitMethod("paymentRequestRepository.GetByManagerRequestID", "found", false)
			return nil, fmt.Errorf("payment request for maintenance request %d: %w", requestID, domain.ErrNotFound)
		}
		logger.ExitMethodWithError("paymentRequestRepository.GetByManagerRequestID", err, "managerRequestID", requestID)
		return nil, err
	}

	logger.ExitMethod("paymentRequestRepository.GetByManagerRequestID", "paymentRequestID", pr.ID)
	return pr, nil
}

func (r *paymentRequestRepository) List(ctx context.Context, filter domain.PaymentRequestFilter) ([]domain.PaymentRequest, int32, error) {
	logger.EnterMethod("paymentRequestRepository.List", "status", filter.Status, "ownerID", filter.OwnerID)

	where := ` FROM payment_requests WHERE 1=1`
	args := []any{}
	argIdx := 1
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.OwnerID != 0 {
		where += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}

	var count int32
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*)`+where, args...).Scan(&count); err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.List", err)
		return nil, 0, err
	}

	limit, offset := pageOffset(filter.Page, filter.PageSize)
	query := `SELECT ` + paymentRequestColumns + where +
		fmt.Sprintf(` ORDER BY due_date ASC, id ASC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	prs, err := r.queryList(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.List", err)
		return nil, 0, err
	}

	logger.ExitMethod("paymentRequestRepository.List", "count", len(prs), "total", count)
	return prs, count, nil
}

func (r *paymentRequestRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int32) ([]domain.PaymentRequest, error) {
	logger.EnterMethod("paymentRequestRepository.ListOverdue", "asOf", asOf)

	query := `SELECT ` + paymentRequestColumns + `
		FROM payment_requests
		WHERE status = 'pending' AND due_date < $1
		ORDER BY due_date ASC
		LIMIT $2`
	prs, err := r.queryList(ctx, query, asOf, limit)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.ListOverdue", err)
		return nil, err
	}

	logger.ExitMethod("paymentRequestRepository.ListOverdue", "count", len(prs))
	return prs, nil
}

func (r *paymentRequestRepository) queryList(ctx context.Context, query string, args ...any) ([]domain.PaymentRequest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prs []domain.PaymentRequest
	for rows.Next() {
		pr, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		prs = append(prs, *pr)
	}
	return prs, rows.Err()
}

func (r *paymentRequestRepository) MarkPaid(ctx context.Context, id int32, amount decimal.Decimal, paidDate time.Time, at time.Time) (bool, error) {
	logger.EnterMethod("paymentRequestRepository.MarkPaid", "paymentRequestID", id, "amount", amount)

	query := `
		UPDATE payment_requests
		SET status = 'paid', paid_amount = $1, paid_date = $2, updated_at = $3
		WHERE id = $4 AND status IN ('pending', 'disputed')
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, amount, paidDate, at, id)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.MarkPaid", err, "paymentRequestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("paymentRequestRepository.MarkPaid", "paymentRequestID", id, "updated", ok)
	return ok, err
}

func (r *paymentRequestRepository) Transition(ctx context.Context, id int32, from []domain.PaymentRequestStatus, to domain.PaymentRequestStatus, at time.Time) (bool, error) {
	logger.EnterMethod("paymentRequestRepository.Transition", "paymentRequestID", id, "to", to)

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	query := `UPDATE payment_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, to, at, id, pq.Array(allowed))
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.Transition", err, "paymentRequestID", id)
		return false, err
	}

	ok, err := affected(res)
	logger.ExitMethod("paymentRequestRepository.Transition", "paymentRequestID", id, "updated", ok)
	return ok, err
}

func (r *paymentRequestRepository) CreateAction(ctx context.Context, action *domain.PaymentRequestAction) error {
	logger.EnterMethod("paymentRequestRepository.CreateAction", "paymentRequestID", action.PaymentRequestID, "type", action.ActionType)

	query := `
		INSERT INTO payment_request_actions (payment_request_id, actor_email, action_type, from_status, to_status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		action.PaymentRequestID, action.ActorEmail, action.ActionType,
		nullString(string(action.FromStatus)), nullString(string(action.ToStatus)), action.Notes, action.CreatedAt,
	).Scan(&action.ID)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.CreateAction", err, "paymentRequestID", action.PaymentRequestID)
		return err
	}

	logger.ExitMethod("paymentRequestRepository.CreateAction", "actionID", action.ID)
	return nil
}

func (r *paymentRequestRepository) ListActions(ctx context.Context, paymentRequestID int32) ([]domain.PaymentRequestAction, error) {
	logger.EnterMethod("paymentRequestRepository.ListActions", "paymentRequestID", paymentRequestID)

	query := `
		SELECT id, payment_request_id, actor_email, action_type, COALESCE(from_status, ''), COALESCE(to_status, ''), notes, created_at
		FROM payment_request_actions
		WHERE payment_request_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, paymentRequestID)
	if err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.ListActions", err)
		return nil, err
	}
	defer rows.Close()

	var actions []domain.PaymentRequestAction
	for rows.Next() {
		var a domain.PaymentRequestAction
		if err := rows.Scan(&a.ID, &a.PaymentRequestID, &a.ActorEmail, &a.ActionType, &a.FromStatus, &a.ToStatus, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	logger.ExitMethod("paymentRequestRepository.ListActions", "count", len(actions))
	return actions, rows.Err()
}

func (r *paymentRequestRepository) LastActionAt(ctx context.Context, paymentRequestID int32, actionType domain.PaymentRequestActionType) (*time.Time, error) {
	logger.EnterMethod("paymentRequestRepository.LastActionAt", "paymentRequestID", paymentRequestID, "type", actionType)

	var last *time.Time
	query := `SELECT MAX(created_at) FROM payment_request_actions WHERE payment_request_id = $1 AND action_type = $2`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, paymentRequestID, actionType).Scan(&last); err != nil {
		logger.ExitMethodWithError("paymentRequestRepository.LastActionAt", err)
		return nil, err
	}

	logger.ExitMethod("paymentRequestRepository.LastActionAt", "paymentRequestID", paymentRequestID)
	return last, nil
}
