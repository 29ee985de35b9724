package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `
	id, applicant_name, applicant_email, applicant_phone, property_id, status,
	monthly_rent, lease_start_date, lease_end_date, first_payment_amount, is_prorated, first_payment_due,
	gateway_customer_ref, has_checking_account, has_credit_card, security_deposit_paid, security_deposit_amount,
	auto_pay_enabled, subscription_ref, next_payment_date, last_payment_date, COALESCE(rent_payment_status, ''),
	approved_by, created_at, updated_at`

func scanApplication(row rowScanner) (*domain.RentalApplication, error) {
	app := &domain.RentalApplication{}
	err := row.Scan(
		&app.ID, &app.ApplicantName, &app.ApplicantEmail, &app.ApplicantPhone, &app.PropertyID, &app.Status,
		&app.MonthlyRent, &app.LeaseStartDate, &app.LeaseEndDate, &app.FirstPaymentAmount, &app.IsProrated, &app.FirstPaymentDue,
		&app.GatewayCustomerRef, &app.HasCheckingAccount, &app.HasCreditCard, &app.SecurityDepositPaid, &app.SecurityDepositAmount,
		&app.AutoPayEnabled, &app.SubscriptionRef, &app.NextPaymentDate, &app.LastPaymentDate, &app.RentPaymentStatus,
		&app.ApprovedBy, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.RentalApplication) error {
	logger.EnterMethod("applicationRepository.Create", "applicant", app.ApplicantEmail)

	query := `
		INSERT INTO rental_applications (
			applicant_name, applicant_email, applicant_phone, property_id, status, monthly_rent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		app.ApplicantName, app.ApplicantEmail, app.ApplicantPhone, app.PropertyID, app.Status, app.MonthlyRent, app.CreatedAt,
	).Scan(&app.ID)
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.Create", err)
		return err
	}

	app.UpdatedAt = app.CreatedAt
	logger.ExitMethod("applicationRepository.Create", "applicationID", app.ID)
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.RentalApplication, error) {
	logger.EnterMethod("applicationRepository.GetByID", "applicationID", id)

	query := `SELECT ` + applicationColumns + ` FROM rental_applications WHERE id = $1`
	app, err := scanApplication(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.GetByID", err, "applicationID", id)
		return nil, notFound(err, "rental application", id)
	}

	logger.ExitMethod("applicationRepository.GetByID", "applicationID", id)
	return app, nil
}

func (r *applicationRepository) Approve(ctx context.Context, id int32, a domain.LeaseApproval, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.Approve", "applicationID", id, "monthlyRent", a.MonthlyRent)

	query := `
		UPDATE rental_applications SET
			status = 'approved',
			monthly_rent = $1,
			lease_start_date = $2,
			lease_end_date = $3,
			first_payment_amount = $4,
			is_prorated = $5,
			first_payment_due = $6,
			approved_by = $7,
			updated_at = $8
		WHERE id = $9 AND status = 'pending'
	`
	return r.execConditional(ctx, "applicationRepository.Approve", id, query,
		a.MonthlyRent, a.LeaseStartDate, a.LeaseEndDate, a.FirstPaymentAmount, a.IsProrated, a.FirstPaymentDue,
		a.ApprovedBy, at, id)
}

func (r *applicationRepository) Reject(ctx context.Context, id int32, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.Reject", "applicationID", id)

	query := `UPDATE rental_applications SET status = 'rejected', updated_at = $1 WHERE id = $2 AND status = 'pending'`
	return r.execConditional(ctx, "applicationRepository.Reject", id, query, at, id)
}

func (r *applicationRepository) SetGatewayCustomer(ctx context.Context, id int32, customerRef string, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.SetGatewayCustomer", "applicationID", id)

	query := `
		UPDATE rental_applications SET gateway_customer_ref = $1, updated_at = $2
		WHERE id = $3 AND gateway_customer_ref IS NULL
	`
	return r.execConditional(ctx, "applicationRepository.SetGatewayCustomer", id, query, customerRef, at, id)
}

func (r *applicationRepository) SetFundingFlag(ctx context.Context, id int32, kind domain.FundingSourceKind, at time.Time) error {
	logger.EnterMethod("applicationRepository.SetFundingFlag", "applicationID", id, "kind", kind)

	column := "has_credit_card"
	if kind == domain.FundingSourceBank {
		column = "has_checking_account"
	}

	query := `UPDATE rental_applications SET ` + column + ` = true, updated_at = $1 WHERE id = $2`
	ok, err := r.execConditional(ctx, "applicationRepository.SetFundingFlag", id, query, at, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("rental application", id)
	}
	return nil
}

func (r *applicationRepository) ClaimDepositCharge(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.ClaimDepositCharge", "applicationID", id)

	query := `
		UPDATE rental_applications SET deposit_claimed_at = $1
		WHERE id = $2 AND security_deposit_paid = false
		  AND (deposit_claimed_at IS NULL OR deposit_claimed_at < $3)
	`
	return r.execConditional(ctx, "applicationRepository.ClaimDepositCharge", id, query, at, id, staleBefore)
}

func (r *applicationRepository) ReleaseDepositClaim(ctx context.Context, id int32) error {
	logger.EnterMethod("applicationRepository.ReleaseDepositClaim", "applicationID", id)

	query := `UPDATE rental_applications SET deposit_claimed_at = NULL WHERE id = $1 AND security_deposit_paid = false`
	_, err := r.execConditional(ctx, "applicationRepository.ReleaseDepositClaim", id, query, id)
	return err
}

func (r *applicationRepository) MarkDepositPaid(ctx context.Context, id int32, amount decimal.Decimal, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.MarkDepositPaid", "applicationID", id, "amount", amount)

	query := `
		UPDATE rental_applications SET
			security_deposit_paid = true,
			security_deposit_amount = $1,
			deposit_claimed_at = NULL,
			updated_at = $2
		WHERE id = $3 AND security_deposit_paid = false
	`
	return r.execConditional(ctx, "applicationRepository.MarkDepositPaid", id, query, amount, at, id)
}

func (r *applicationRepository) ClaimEnrollment(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.ClaimEnrollment", "applicationID", id)

	query := `
		UPDATE rental_applications SET enrollment_claimed_at = $1
		WHERE id = $2 AND auto_pay_enabled = false
		  AND (enrollment_claimed_at IS NULL OR enrollment_claimed_at < $3)
	`
	return r.execConditional(ctx, "applicationRepository.ClaimEnrollment", id, query, at, id, staleBefore)
}

func (r *applicationRepository) ReleaseEnrollment(ctx context.Context, id int32) error {
	logger.EnterMethod("applicationRepository.ReleaseEnrollment", "applicationID", id)

	query := `UPDATE rental_applications SET enrollment_claimed_at = NULL WHERE id = $1 AND auto_pay_enabled = false`
	_, err := r.execConditional(ctx, "applicationRepository.ReleaseEnrollment", id, query, id)
	return err
}

func (r *applicationRepository) CompleteEnrollment(ctx context.Context, id int32, e domain.Enrollment, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.CompleteEnrollment", "applicationID", id, "subscriptionRef", e.SubscriptionRef)

	query := `
		UPDATE rental_applications SET
			auto_pay_enabled = true,
			enrollment_claimed_at = NULL,
			subscription_ref = $1,
			next_payment_date = $2,
			rent_payment_status = 'current',
			monthly_rent = $3,
			lease_start_date = $4,
			lease_end_date = $5,
			updated_at = $6
		WHERE id = $7 AND auto_pay_enabled = false
	`
	return r.execConditional(ctx, "applicationRepository.CompleteEnrollment", id, query,
		e.SubscriptionRef, e.NextPaymentDate, e.MonthlyRent, e.LeaseStartDate, e.LeaseEndDate, at, id)
}

func (r *applicationRepository) RecordRentPayment(ctx context.Context, id int32, previous *time.Time, covered time.Time, at time.Time) (bool, error) {
	logger.EnterMethod("applicationRepository.RecordRentPayment", "applicationID", id, "covered", covered)

	query := `
		UPDATE rental_applications SET last_payment_date = $1, updated_at = $2
		WHERE id = $3 AND auto_pay_enabled = true AND last_payment_date IS NOT DISTINCT FROM $4::date
	`
	return r.execConditional(ctx, "applicationRepository.RecordRentPayment", id, query, covered, at, id, previous)
}

func (r *applicationRepository) ListEnrolled(ctx context.Context, afterID int32, limit int32) ([]domain.RentalApplication, error) {
	logger.EnterMethod("applicationRepository.ListEnrolled", "afterID", afterID, "limit", limit)

	query := `SELECT ` + applicationColumns + `
		FROM rental_applications
		WHERE auto_pay_enabled = true AND id > $1
		ORDER BY id ASC
		LIMIT $2`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, afterID, limit)
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.ListEnrolled", err)
		return nil, err
	}
	defer rows.Close()

	var apps []domain.RentalApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}

	logger.ExitMethod("applicationRepository.ListEnrolled", "count", len(apps))
	return apps, rows.Err()
}

func (r *applicationRepository) UpdateStanding(ctx context.Context, id int32, next time.Time, status domain.RentPaymentStatus, at time.Time) error {
	logger.EnterMethod("applicationRepository.UpdateStanding", "applicationID", id, "status", status)

	query := `
		UPDATE rental_applications SET next_payment_date = $1, rent_payment_status = $2, updated_at = $3
		WHERE id = $4 AND auto_pay_enabled = true
	`
	_, err := r.execConditional(ctx, "applicationRepository.UpdateStanding", id, query, next, status, at, id)
	return err
}

// execConditional runs a single-row UPDATE and reports whether it matched.
func (r *applicationRepository) execConditional(ctx context.Context, method string, id int32, query string, args ...any) (bool, error) {
	logger.DatabaseCall(method, query, "applicationID", id)

	res, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult(method, 0, err, "applicationID", id)
		logger.ExitMethodWithError(method, err, "applicationID", id)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(method, n, err, "applicationID", id)
	if err != nil {
		return false, err
	}

	logger.ExitMethod(method, "applicationID", id, "matched", n > 0)
	return n > 0, nil
}
