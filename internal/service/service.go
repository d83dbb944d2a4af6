package service

import (
	"context"
	"time"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/payment"
)

// CheckoutSession is returned by lease operations that open a payment flow.
// The lease is on hold until the gateway confirms or the hold goes stale.
type CheckoutSession struct {
	Lease           *domain.Lease `json:"lease"`
	PaymentIntentID string        `json:"paymentIntentId"`
	ClientSecret    string        `json:"clientSecret"`
	AmountCents     int64         `json:"amountCents"`
}

type LeaseService interface {
	CreateLease(ctx context.Context, userID, email, carID string, startDate time.Time) (*CheckoutSession, error)
	ExtendLease(ctx context.Context, userID, email, leaseID string, additionalDays int) (*CheckoutSession, error)
	ReturnCar(ctx context.Context, userID, leaseID string) (*domain.Lease, error)
	GetLease(ctx context.Context, userID string, isAdmin bool, leaseID string) (*domain.Lease, error)
	ListUserLeases(ctx context.Context, userID string) ([]domain.Lease, error)
	PaymentHistory(ctx context.Context, userID string) ([]domain.PaymentRecord, error)

	// Sweeps, invoked by the scheduler. Each returns how many rows it touched.
	SweepExpired(ctx context.Context) (int, error)
	SweepReminders(ctx context.Context) (int, error)
	ReleaseStaleHolds(ctx context.Context) (int, error)
}

type CarService interface {
	ListCars(ctx context.Context, page, pageSize int) ([]domain.Car, int, error)
	GetCar(ctx context.Context, id string) (*domain.Car, error)
	CreateCar(ctx context.Context, adminID string, car *domain.Car) error
	UpdateCar(ctx context.Context, adminID string, car *domain.Car) error
}

// WebhookService reconciles verified gateway events against lease state.
type WebhookService interface {
	Reconcile(ctx context.Context, event *payment.Event) error
}

type AuditService interface {
	ListActivity(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
}

type EmailService interface {
	SendLeaseConfirmation(ctx context.Context, to, carName string, start, end time.Time, amountCents int64) error
	SendLeaseExtended(ctx context.Context, to, carName string, newEnd time.Time, amountCents int64) error
	SendLeaseReminder(ctx context.Context, to, carName string, end time.Time) error
}

// Cache is the read-through/invalidation surface the services depend on.
// Satisfied by cache.Store; faked in tests.
type Cache interface {
	GetCar(ctx context.Context, id string) (*domain.Car, bool, error)
	SetCar(ctx context.Context, car *domain.Car) error
	GetCarPage(ctx context.Context, page, limit int) ([]domain.Car, int, bool, error)
	SetCarPage(ctx context.Context, page, limit int, cars []domain.Car, total int) error
	GetLease(ctx context.Context, id string) (*domain.Lease, bool, error)
	SetLease(ctx context.Context, lease *domain.Lease) error
	GetUserLeases(ctx context.Context, userID string) ([]domain.Lease, bool, error)
	SetUserLeases(ctx context.Context, userID string, leases []domain.Lease) error
	GetPaymentHistory(ctx context.Context, userID string) ([]domain.PaymentRecord, bool, error)
	SetPaymentHistory(ctx context.Context, userID string, records []domain.PaymentRecord) error
	InvalidateCar(ctx context.Context, carID string) error
	InvalidateLease(ctx context.Context, leaseID, userID string) error
}

// Enqueuer pushes notification jobs. Satisfied by queue.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// EmailJobPayload is carried on the notification queue for all lease emails.
type EmailJobPayload struct {
	LeaseID     string    `json:"leaseId"`
	To          string    `json:"to"`
	CarName     string    `json:"carName"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	AmountCents int64     `json:"amountCents"`
}
