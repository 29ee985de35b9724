package memory

import (
	"context"
	"sort"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// applicationRow carries the claim columns that never leave the store.
type applicationRow struct {
	app                 domain.RentalApplication
	depositClaimedAt    *time.Time
	enrollmentClaimedAt *time.Time
}

type applicationRepository struct {
	s *Store
}

// update applies fn to the row when guard accepts it.
func (r *applicationRepository) update(ctx context.Context, id int32, guard func(row *applicationRow) bool, fn func(row *applicationRow)) bool {
	defer r.s.lock(ctx)()

	row, ok := r.s.d.applications[id]
	if !ok || !guard(&row) {
		return false
	}
	fn(&row)
	r.s.d.applications[id] = row
	return true
}

func claimFree(claimedAt *time.Time, staleBefore time.Time) bool {
	return claimedAt == nil || claimedAt.Before(staleBefore)
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.RentalApplication) error {
	defer r.s.lock(ctx)()

	r.s.d.nextApp++
	app.ID = r.s.d.nextApp
	app.UpdatedAt = app.CreatedAt
	r.s.d.applications[app.ID] = applicationRow{app: *app}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.RentalApplication, error) {
	defer r.s.lock(ctx)()

	row, ok := r.s.d.applications[id]
	if !ok {
		return nil, domain.NotFound("rental application", id)
	}
	app := row.app
	return &app, nil
}

func (r *applicationRepository) Approve(ctx context.Context, id int32, a domain.LeaseApproval, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool { return row.app.Status == domain.ApplicationStatusPending },
		func(row *applicationRow) {
			start, end, due := a.LeaseStartDate, a.LeaseEndDate, a.FirstPaymentDue
			row.app.Status = domain.ApplicationStatusApproved
			row.app.MonthlyRent = a.MonthlyRent
			row.app.LeaseStartDate = &start
			row.app.LeaseEndDate = &end
			row.app.FirstPaymentAmount = decimal.NullDecimal{Decimal: a.FirstPaymentAmount, Valid: true}
			row.app.IsProrated = a.IsProrated
			row.app.FirstPaymentDue = &due
			row.app.ApprovedBy = &a.ApprovedBy
			row.app.UpdatedAt = at
		}), nil
}

func (r *applicationRepository) Reject(ctx context.Context, id int32, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool { return row.app.Status == domain.ApplicationStatusPending },
		func(row *applicationRow) {
			row.app.Status = domain.ApplicationStatusRejected
			row.app.UpdatedAt = at
		}), nil
}

func (r *applicationRepository) SetGatewayCustomer(ctx context.Context, id int32, customerRef string, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool { return row.app.GatewayCustomerRef == nil },
		func(row *applicationRow) {
			row.app.GatewayCustomerRef = &customerRef
			row.app.UpdatedAt = at
		}), nil
}

func (r *applicationRepository) SetFundingFlag(ctx context.Context, id int32, kind domain.FundingSourceKind, at time.Time) error {
	ok := r.update(ctx, id,
		func(*applicationRow) bool { return true },
		func(row *applicationRow) {
			if kind == domain.FundingSourceBank {
				row.app.HasCheckingAccount = true
			} else {
				row.app.HasCreditCard = true
			}
			row.app.UpdatedAt = at
		})
	if !ok {
		return domain.NotFound("rental application", id)
	}
	return nil
}

func (r *applicationRepository) ClaimDepositCharge(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool {
			return !row.app.SecurityDepositPaid && claimFree(row.depositClaimedAt, staleBefore)
		},
		func(row *applicationRow) { row.depositClaimedAt = &at }), nil
}

func (r *applicationRepository) ReleaseDepositClaim(ctx context.Context, id int32) error {
	r.update(ctx, id,
		func(row *applicationRow) bool { return !row.app.SecurityDepositPaid },
		func(row *applicationRow) { row.depositClaimedAt = nil })
	return nil
}

func (r *applicationRepository) MarkDepositPaid(ctx context.Context, id int32, amount decimal.Decimal, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool { return !row.app.SecurityDepositPaid },
		func(row *applicationRow) {
			row.app.SecurityDepositPaid = true
			row.app.SecurityDepositAmount = amount
			row.app.UpdatedAt = at
			row.depositClaimedAt = nil
		}), nil
}

func (r *applicationRepository) ClaimEnrollment(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool {
			return !row.app.AutoPayEnabled && claimFree(row.enrollmentClaimedAt, staleBefore)
		},
		func(row *applicationRow) { row.enrollmentClaimedAt = &at }), nil
}

func (r *applicationRepository) ReleaseEnrollment(ctx context.Context, id int32) error {
	r.update(ctx, id,
		func(row *applicationRow) bool { return !row.app.AutoPayEnabled },
		func(row *applicationRow) { row.enrollmentClaimedAt = nil })
	return nil
}

func (r *applicationRepository) CompleteEnrollment(ctx context.Context, id int32, e domain.Enrollment, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool { return !row.app.AutoPayEnabled },
		func(row *applicationRow) {
			ref, next, start, end := e.SubscriptionRef, e.NextPaymentDate, e.LeaseStartDate, e.LeaseEndDate
			row.app.AutoPayEnabled = true
			row.app.SubscriptionRef = &ref
			row.app.NextPaymentDate = &next
			row.app.RentPaymentStatus = domain.RentPaymentStatusCurrent
			row.app.MonthlyRent = e.MonthlyRent
			row.app.LeaseStartDate = &start
			row.app.LeaseEndDate = &end
			row.app.UpdatedAt = at
			row.enrollmentClaimedAt = nil
		}), nil
}

func (r *applicationRepository) RecordRentPayment(ctx context.Context, id int32, previous *time.Time, covered time.Time, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(row *applicationRow) bool {
			if !row.app.AutoPayEnabled {
				return false
			}
			last := row.app.LastPaymentDate
			if last == nil || previous == nil {
				return last == nil && previous == nil
			}
			return last.Equal(*previous)
		},
		func(row *applicationRow) {
			row.app.LastPaymentDate = &covered
			row.app.UpdatedAt = at
		}), nil
}

func (r *applicationRepository) ListEnrolled(ctx context.Context, afterID int32, limit int32) ([]domain.RentalApplication, error) {
	defer r.s.lock(ctx)()

	var out []domain.RentalApplication
	for id, row := range r.s.d.applications {
		if row.app.AutoPayEnabled && id > afterID {
			out = append(out, row.app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (r *applicationRepository) UpdateStanding(ctx context.Context, id int32, next time.Time, status domain.RentPaymentStatus, at time.Time) error {
	r.update(ctx, id,
		func(row *applicationRow) bool { return row.app.AutoPayEnabled },
		func(row *applicationRow) {
			row.app.NextPaymentDate = &next
			row.app.RentPaymentStatus = status
			row.app.UpdatedAt = at
		})
	return nil
}
