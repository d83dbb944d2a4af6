package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/repository"
)

type leaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) repository.LeaseRepository {
	return &leaseRepository{db: db}
}

const leaseColumns = `id, user_id, car_id, start_date, end_date, total_amount_cents, status, is_returned, returned_date, payment_intent_id, prev_end_date, pending_charge_cents, last_reminder_sent_at, created_at, updated_at`

func scanLease(scanner interface{ Scan(...any) error }) (*domain.Lease, error) {
	l := &domain.Lease{}
	err := scanner.Scan(
		&l.ID, &l.UserID, &l.CarID, &l.StartDate, &l.EndDate, &l.TotalAmountCents,
		&l.Status, &l.IsReturned, &l.ReturnedDate, &l.PaymentIntentID,
		&l.PrevEndDate, &l.PendingChargeCents, &l.LastReminderSentAt,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *leaseRepository) Create(ctx context.Context, l *domain.Lease) error {
	query := `INSERT INTO leases (id, user_id, car_id, start_date, end_date, total_amount_cents, status, is_returned, payment_intent_id, pending_charge_cents, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.UserID, l.CarID, l.StartDate, l.EndDate, l.TotalAmountCents,
		l.Status, l.IsReturned, l.PaymentIntentID, l.PendingChargeCents, now, now)
	return err
}

func (r *leaseRepository) GetByID(ctx context.Context, id string) (*domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases WHERE id = $1`
	l, err := scanLease(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *leaseRepository) ListByUser(ctx context.Context, userID string) ([]domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}

func (r *leaseRepository) ExistsOverlapping(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	query := `SELECT EXISTS (
	            SELECT 1 FROM leases
	            WHERE car_id = $1
	              AND status IN ('pending', 'active')
	              AND start_date <= $3
	              AND end_date >= $2
	          )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, carID, start, end).Scan(&exists)
	return exists, err
}

func (r *leaseRepository) SetPaymentIntent(ctx context.Context, leaseID, intentID string) error {
	query := `UPDATE leases SET payment_intent_id = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, intentID, time.Now(), leaseID)
	return err
}

func (r *leaseRepository) conditional(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *leaseRepository) Activate(ctx context.Context, leaseID string) (bool, error) {
	query := `UPDATE leases SET status = 'active', updated_at = $1 WHERE id = $2 AND status = 'pending'`
	return r.conditional(ctx, query, time.Now(), leaseID)
}

func (r *leaseRepository) Cancel(ctx context.Context, leaseID string) (bool, error) {
	query := `UPDATE leases SET status = 'cancelled', updated_at = $1 WHERE id = $2 AND status = 'pending'`
	return r.conditional(ctx, query, time.Now(), leaseID)
}

func (r *leaseRepository) MarkReturned(ctx context.Context, leaseID string, returnedAt time.Time) (bool, error) {
	query := `UPDATE leases SET is_returned = true, returned_date = $1, status = 'completed', updated_at = $2
	          WHERE id = $3 AND is_returned = false`
	return r.conditional(ctx, query, returnedAt, time.Now(), leaseID)
}

func (r *leaseRepository) StageExtension(ctx context.Context, leaseID string, newEnd time.Time, intentID string, chargeCents int64) error {
	query := `UPDATE leases
	          SET prev_end_date = end_date,
	              end_date = $1,
	              payment_intent_id = $2,
	              pending_charge_cents = $3,
	              status = 'pending',
	              updated_at = $4
	          WHERE id = $5 AND status = 'active'`
	ok, err := r.conditional(ctx, query, newEnd, intentID, chargeCents, time.Now(), leaseID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func (r *leaseRepository) ConfirmExtension(ctx context.Context, leaseID string, newEnd time.Time) (bool, error) {
	query := `UPDATE leases
	          SET status = 'active',
	              end_date = $1,
	              total_amount_cents = total_amount_cents + pending_charge_cents,
	              prev_end_date = NULL,
	              pending_charge_cents = 0,
	              updated_at = $2
	          WHERE id = $3 AND status = 'pending' AND prev_end_date IS NOT NULL`
	return r.conditional(ctx, query, newEnd, time.Now(), leaseID)
}

func (r *leaseRepository) RevertExtension(ctx context.Context, leaseID string) (bool, error) {
	query := `UPDATE leases
	          SET status = 'active',
	              end_date = prev_end_date,
	              prev_end_date = NULL,
	              pending_charge_cents = 0,
	              updated_at = $1
	          WHERE id = $2 AND status = 'pending' AND prev_end_date IS NOT NULL`
	return r.conditional(ctx, query, time.Now(), leaseID)
}

func (r *leaseRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Lease, error) {
	query := `UPDATE leases
	          SET status = 'expired', updated_at = $1
	          WHERE status = 'active' AND end_date < $2
	          RETURNING ` + leaseColumns
	rows, err := r.db.QueryContext(ctx, query, now, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *l)
	}
	return expired, rows.Err()
}

func (r *leaseRepository) ListExpiring(ctx context.Context, now time.Time, window time.Duration) ([]domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases
	          WHERE status = 'active'
	            AND is_returned = false
	            AND end_date > $1
	            AND end_date <= $2`
	rows, err := r.db.QueryContext(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}

// ClaimReminder is the reminder throttle: the conditional write claims the
// send, so two sweep runs inside the throttle window send at most one email.
func (r *leaseRepository) ClaimReminder(ctx context.Context, leaseID string, now time.Time, throttle time.Duration) (bool, error) {
	query := `UPDATE leases SET last_reminder_sent_at = $1, updated_at = $1
	          WHERE id = $2 AND (last_reminder_sent_at IS NULL OR last_reminder_sent_at <= $3)`
	return r.conditional(ctx, query, now, leaseID, now.Add(-throttle))
}

func (r *leaseRepository) ListStaleHolds(ctx context.Context, cutoff time.Time) ([]domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases
	          WHERE status = 'pending' AND updated_at < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *l)
	}
	return holds, rows.Err()
}
