package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/payment"
)

// MockCarRepo
type MockCarRepo struct {
	mock.Mock
}

func (m *MockCarRepo) Create(ctx context.Context, car *domain.Car) error {
	args := m.Called(ctx, car)
	return args.Error(0)
}
func (m *MockCarRepo) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}
func (m *MockCarRepo) Update(ctx context.Context, car *domain.Car) error {
	args := m.Called(ctx, car)
	return args.Error(0)
}
func (m *MockCarRepo) List(ctx context.Context, page, pageSize int) ([]domain.Car, int, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.Car), args.Int(1), args.Error(2)
}
func (m *MockCarRepo) Reserve(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockCarRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

// MockLeaseRepo
type MockLeaseRepo struct {
	mock.Mock
}

func (m *MockLeaseRepo) Create(ctx context.Context, lease *domain.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}
func (m *MockLeaseRepo) GetByID(ctx context.Context, id string) (*domain.Lease, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}
func (m *MockLeaseRepo) ListByUser(ctx context.Context, userID string) ([]domain.Lease, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Lease), args.Error(1)
}
func (m *MockLeaseRepo) ExistsOverlapping(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	args := m.Called(ctx, carID, start, end)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) SetPaymentIntent(ctx context.Context, leaseID, intentID string) error {
	args := m.Called(ctx, leaseID, intentID)
	return args.Error(0)
}
func (m *MockLeaseRepo) Activate(ctx context.Context, leaseID string) (bool, error) {
	args := m.Called(ctx, leaseID)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) Cancel(ctx context.Context, leaseID string) (bool, error) {
	args := m.Called(ctx, leaseID)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) MarkReturned(ctx context.Context, leaseID string, returnedAt time.Time) (bool, error) {
	args := m.Called(ctx, leaseID, returnedAt)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) StageExtension(ctx context.Context, leaseID string, newEnd time.Time, intentID string, chargeCents int64) error {
	args := m.Called(ctx, leaseID, newEnd, intentID, chargeCents)
	return args.Error(0)
}
func (m *MockLeaseRepo) ConfirmExtension(ctx context.Context, leaseID string, newEnd time.Time) (bool, error) {
	args := m.Called(ctx, leaseID, newEnd)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) RevertExtension(ctx context.Context, leaseID string) (bool, error) {
	args := m.Called(ctx, leaseID)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Lease, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Lease), args.Error(1)
}
func (m *MockLeaseRepo) ListExpiring(ctx context.Context, now time.Time, window time.Duration) ([]domain.Lease, error) {
	args := m.Called(ctx, now, window)
	return args.Get(0).([]domain.Lease), args.Error(1)
}
func (m *MockLeaseRepo) ClaimReminder(ctx context.Context, leaseID string, now time.Time, throttle time.Duration) (bool, error) {
	args := m.Called(ctx, leaseID, now, throttle)
	return args.Bool(0), args.Error(1)
}
func (m *MockLeaseRepo) ListStaleHolds(ctx context.Context, cutoff time.Time) ([]domain.Lease, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.Lease), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockAuditRepo
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockAuditRepo) List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

// MockWebhookEventRepo
type MockWebhookEventRepo struct {
	mock.Mock
}

func (m *MockWebhookEventRepo) Record(ctx context.Context, intentID, eventType, eventID string) (bool, error) {
	args := m.Called(ctx, intentID, eventType, eventID)
	return args.Bool(0), args.Error(1)
}
func (m *MockWebhookEventRepo) Remove(ctx context.Context, intentID, eventType string) error {
	args := m.Called(ctx, intentID, eventType)
	return args.Error(0)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*payment.Intent, error) {
	args := m.Called(ctx, amountCents, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

// MockEnqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, name string, payload any) error {
	args := m.Called(ctx, name, payload)
	return args.Error(0)
}

// fakeCache always misses on reads and counts invalidations. Cache behavior
// is advisory, so the service tests only care that the right keys get dropped.
type fakeCache struct {
	invalidatedLeases []string
	invalidatedCars   []string
}

func (c *fakeCache) GetCar(context.Context, string) (*domain.Car, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) SetCar(context.Context, *domain.Car) error { return nil }
func (c *fakeCache) GetCarPage(context.Context, int, int) ([]domain.Car, int, bool, error) {
	return nil, 0, false, nil
}
func (c *fakeCache) SetCarPage(context.Context, int, int, []domain.Car, int) error { return nil }
func (c *fakeCache) GetLease(context.Context, string) (*domain.Lease, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) SetLease(context.Context, *domain.Lease) error { return nil }
func (c *fakeCache) GetUserLeases(context.Context, string) ([]domain.Lease, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) SetUserLeases(context.Context, string, []domain.Lease) error { return nil }
func (c *fakeCache) GetPaymentHistory(context.Context, string) ([]domain.PaymentRecord, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) SetPaymentHistory(context.Context, string, []domain.PaymentRecord) error {
	return nil
}
func (c *fakeCache) InvalidateCar(_ context.Context, carID string) error {
	c.invalidatedCars = append(c.invalidatedCars, carID)
	return nil
}
func (c *fakeCache) InvalidateLease(_ context.Context, leaseID, _ string) error {
	c.invalidatedLeases = append(c.invalidatedLeases, leaseID)
	return nil
}
