package repository

import (
	"context"
	"time"

	"citycar-backend/internal/domain"
)

type CarRepository interface {
	Create(ctx context.Context, car *domain.Car) error
	GetByID(ctx context.Context, id string) (*domain.Car, error)
	Update(ctx context.Context, car *domain.Car) error
	List(ctx context.Context, page, pageSize int) ([]domain.Car, int, error)

	// Reserve atomically flips available false and reports whether this call
	// won the flip. A false return with nil error means another lease holds
	// the car; this is the guard against double-booking races.
	Reserve(ctx context.Context, id string) (bool, error)
	// SetAvailability unconditionally writes the availability flag. Idempotent.
	SetAvailability(ctx context.Context, id string, available bool) error
}

type LeaseRepository interface {
	Create(ctx context.Context, lease *domain.Lease) error
	GetByID(ctx context.Context, id string) (*domain.Lease, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Lease, error)

	// ExistsOverlapping reports whether a non-terminal lease on the car
	// overlaps [start, end].
	ExistsOverlapping(ctx context.Context, carID string, start, end time.Time) (bool, error)

	SetPaymentIntent(ctx context.Context, leaseID, intentID string) error

	// Conditional transitions. Each returns true when the row transitioned,
	// false when it was already past the guarded state (webhook replay,
	// concurrent sweep). Guards make replays harmless even without dedupe.
	Activate(ctx context.Context, leaseID string) (bool, error)
	Cancel(ctx context.Context, leaseID string) (bool, error)
	MarkReturned(ctx context.Context, leaseID string, returnedAt time.Time) (bool, error)

	// StageExtension applies the optimistic extension: new end date and
	// intent, previous end date and charge snapshotted, status back to pending.
	StageExtension(ctx context.Context, leaseID string, newEnd time.Time, intentID string, chargeCents int64) error
	// ConfirmExtension commits a staged extension: status active, charge
	// added to the total, snapshot cleared.
	ConfirmExtension(ctx context.Context, leaseID string, newEnd time.Time) (bool, error)
	// RevertExtension restores the snapshotted end date of a staged
	// extension and reactivates the lease.
	RevertExtension(ctx context.Context, leaseID string) (bool, error)

	// ExpireOverdue transitions every active lease past now to expired and
	// returns the affected leases.
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Lease, error)
	// ListExpiring returns unreturned active leases ending within window of now.
	ListExpiring(ctx context.Context, now time.Time, window time.Duration) ([]domain.Lease, error)
	// ClaimReminder updates last_reminder_sent_at if it is older than the
	// throttle; the true return claims the right to send one reminder.
	ClaimReminder(ctx context.Context, leaseID string, now time.Time, throttle time.Duration) (bool, error)
	// ListStaleHolds returns pending leases untouched since the cutoff.
	ListStaleHolds(ctx context.Context, cutoff time.Time) ([]domain.Lease, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// WebhookEventRepository is the dedupe set for gateway deliveries, keyed on
// payment intent id plus event type.
type WebhookEventRepository interface {
	// Record returns true if this (intentID, eventType) pair is new.
	Record(ctx context.Context, intentID, eventType, eventID string) (bool, error)
	// Remove releases a recorded pair so a redelivery can be reprocessed.
	// Used when processing fails after the pair was recorded.
	Remove(ctx context.Context, intentID, eventType string) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
}
