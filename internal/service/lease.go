package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/payment"
	"citycar-backend/internal/queue"
	"citycar-backend/internal/repository"
)

// extendWindow is how close to the end date a lease must be before it can be
// extended. Outside the window extension requests are rejected.
const extendWindow = 24 * time.Hour

type leaseService struct {
	cars    repository.CarRepository
	leases  repository.LeaseRepository
	users   repository.UserRepository
	audit   repository.AuditRepository
	gateway payment.Gateway
	cache   Cache
	queue   Enqueuer
	log     *slog.Logger

	holdTimeout      time.Duration
	reminderThrottle time.Duration
	now              func() time.Time
}

func NewLeaseService(
	cars repository.CarRepository,
	leases repository.LeaseRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	gateway payment.Gateway,
	cache Cache,
	enq Enqueuer,
	holdTimeout time.Duration,
	reminderThrottle time.Duration,
) LeaseService {
	return &leaseService{
		cars:             cars,
		leases:           leases,
		users:            users,
		audit:            audit,
		gateway:          gateway,
		cache:            cache,
		queue:            enq,
		log:              logger.WithService("lease"),
		holdTimeout:      holdTimeout,
		reminderThrottle: reminderThrottle,
		now:              time.Now,
	}
}

// CreateLease reserves the car, records a pending lease and opens a payment
// intent for a fixed 7-day term. The lease stays pending until the gateway
// confirms payment; the car is off the market from this point so two renters
// cannot check out the same vehicle.
func (s *leaseService) CreateLease(ctx context.Context, userID, email, carID string, startDate time.Time) (*CheckoutSession, error) {
	if carID == "" {
		return nil, domain.Validationf("car id is required")
	}
	now := s.now()
	if startDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, domain.Validationf("start date cannot be in the past")
	}

	// Pricing always comes from a fresh read, never from the cache.
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if !car.Available {
		return nil, fmt.Errorf("%w: car is not available", domain.ErrConflict)
	}

	endDate := startDate.AddDate(0, 0, domain.FirstLeaseDays)
	overlap, err := s.leases.ExistsOverlapping(ctx, carID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("%w: car is already leased for this period", domain.ErrConflict)
	}

	won, err := s.cars.Reserve(ctx, carID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: car was just taken", domain.ErrConflict)
	}

	amount := car.PricePerDayCents * int64(domain.FirstLeaseDays)
	lease := &domain.Lease{
		ID:               uuid.NewString(),
		UserID:           userID,
		CarID:            carID,
		StartDate:        startDate,
		EndDate:          endDate,
		TotalAmountCents: amount,
		Status:           domain.LeaseStatusPending,
	}
	if err := s.leases.Create(ctx, lease); err != nil {
		_ = s.cars.SetAvailability(ctx, carID, true)
		return nil, err
	}

	meta := domain.CreateLeaseIntent{
		UserID:    userID,
		CarID:     carID,
		LeaseID:   lease.ID,
		Email:     email,
		StartDate: startDate,
		EndDate:   endDate,
	}
	intent, err := s.gateway.CreateIntent(ctx, amount, meta.Encode())
	if err != nil {
		// No intent means no webhook will ever arrive; release now instead
		// of waiting for the reaper.
		if ok, cancelErr := s.leases.Cancel(ctx, lease.ID); cancelErr != nil || !ok {
			s.log.Error("failed to cancel lease after gateway error",
				"lease", lease.ID, "error", cancelErr)
		} else {
			_ = s.cars.SetAvailability(ctx, carID, true)
		}
		return nil, err
	}

	if err := s.leases.SetPaymentIntent(ctx, lease.ID, intent.ID); err != nil {
		return nil, err
	}
	lease.PaymentIntentID = intent.ID

	s.invalidate(ctx, lease.ID, userID, carID)
	s.auditLog(ctx, "createLease", userID, lease.ID, carID,
		fmt.Sprintf("lease created for %s %s, %d days", car.Brand, car.ModelName, domain.FirstLeaseDays))

	return &CheckoutSession{
		Lease:           lease,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     amount,
	}, nil
}

// ExtendLease opens a payment intent for extra days on an active lease. The
// new end date is applied optimistically with the previous one snapshotted,
// so a failed payment can be rolled back by the webhook or the reaper.
func (s *leaseService) ExtendLease(ctx context.Context, userID, email, leaseID string, additionalDays int) (*CheckoutSession, error) {
	if additionalDays <= 0 {
		return nil, domain.Validationf("additional days must be at least 1")
	}

	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if lease.IsReturned {
		return nil, fmt.Errorf("%w: car has already been returned", domain.ErrConflict)
	}
	if lease.Status != domain.LeaseStatusActive {
		return nil, fmt.Errorf("%w: lease is %s, only active leases can be extended", domain.ErrConflict, lease.Status)
	}

	left := lease.EndDate.Sub(s.now())
	if left < 0 {
		return nil, domain.Validationf("lease has already ended")
	}
	if left > extendWindow {
		return nil, domain.Validationf("lease can only be extended within 24 hours of its end date")
	}

	car, err := s.cars.GetByID(ctx, lease.CarID)
	if err != nil {
		return nil, err
	}

	charge := car.PricePerDayCents * int64(additionalDays)
	newEnd := lease.EndDate.AddDate(0, 0, additionalDays)

	meta := domain.ExtendLeaseIntent{
		UserID:         userID,
		CarID:          lease.CarID,
		LeaseID:        lease.ID,
		Email:          email,
		AdditionalDays: additionalDays,
		NewEndDate:     newEnd,
	}
	intent, err := s.gateway.CreateIntent(ctx, charge, meta.Encode())
	if err != nil {
		return nil, err
	}

	// A lost race here (lease no longer active) orphans the intent; it is
	// never confirmed so no charge lands.
	if err := s.leases.StageExtension(ctx, lease.ID, newEnd, intent.ID, charge); err != nil {
		return nil, err
	}

	prevEnd := lease.EndDate
	lease.PrevEndDate = &prevEnd
	lease.EndDate = newEnd
	lease.PendingChargeCents = charge
	lease.PaymentIntentID = intent.ID
	lease.Status = domain.LeaseStatusPending

	s.invalidate(ctx, lease.ID, userID, lease.CarID)
	s.auditLog(ctx, "extendLease", userID, lease.ID, lease.CarID,
		fmt.Sprintf("extension requested for %d days", additionalDays))

	return &CheckoutSession{
		Lease:           lease,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     charge,
	}, nil
}

// ReturnCar marks the lease returned and puts the car back on the market.
// Works on active and expired leases alike; a pending hold has nothing to
// return yet.
func (s *leaseService) ReturnCar(ctx context.Context, userID, leaseID string) (*domain.Lease, error) {
	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if lease.Status == domain.LeaseStatusPending {
		return nil, fmt.Errorf("%w: lease payment is still pending", domain.ErrConflict)
	}
	if lease.Status == domain.LeaseStatusCancelled {
		return nil, fmt.Errorf("%w: lease was cancelled", domain.ErrConflict)
	}

	now := s.now()
	ok, err := s.leases.MarkReturned(ctx, leaseID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: car has already been returned", domain.ErrConflict)
	}

	if err := s.cars.SetAvailability(ctx, lease.CarID, true); err != nil {
		s.log.Error("failed to release car after return", "car", lease.CarID, "error", err)
	}

	lease.IsReturned = true
	lease.ReturnedDate = &now
	lease.Status = domain.LeaseStatusCompleted

	s.invalidate(ctx, lease.ID, userID, lease.CarID)
	s.auditLog(ctx, "returnCar", userID, lease.ID, lease.CarID, "car returned")

	return lease, nil
}

func (s *leaseService) GetLease(ctx context.Context, userID string, isAdmin bool, leaseID string) (*domain.Lease, error) {
	if cached, hit, err := s.cache.GetLease(ctx, leaseID); err == nil && hit {
		if cached.UserID != userID && !isAdmin {
			return nil, domain.ErrForbidden
		}
		return cached, nil
	} else if err != nil {
		s.log.Warn("lease cache read failed", "lease", leaseID, "error", err)
	}

	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.UserID != userID && !isAdmin {
		return nil, domain.ErrForbidden
	}
	if err := s.cache.SetLease(ctx, lease); err != nil {
		s.log.Warn("lease cache write failed", "lease", leaseID, "error", err)
	}
	return lease, nil
}

func (s *leaseService) ListUserLeases(ctx context.Context, userID string) ([]domain.Lease, error) {
	if cached, hit, err := s.cache.GetUserLeases(ctx, userID); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.log.Warn("user leases cache read failed", "user", userID, "error", err)
	}

	leases, err := s.leases.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetUserLeases(ctx, userID, leases); err != nil {
		s.log.Warn("user leases cache write failed", "user", userID, "error", err)
	}
	return leases, nil
}

func (s *leaseService) PaymentHistory(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	if cached, hit, err := s.cache.GetPaymentHistory(ctx, userID); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.log.Warn("payment history cache read failed", "user", userID, "error", err)
	}

	leases, err := s.leases.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	records := make([]domain.PaymentRecord, 0, len(leases))
	for _, l := range leases {
		if l.PaymentIntentID == "" {
			continue
		}
		records = append(records, domain.PaymentRecord{
			LeaseID:         l.ID,
			CarID:           l.CarID,
			PaymentIntentID: l.PaymentIntentID,
			AmountCents:     l.TotalAmountCents,
			Status:          l.Status,
			StartDate:       l.StartDate,
			EndDate:         l.EndDate,
		})
	}
	if err := s.cache.SetPaymentHistory(ctx, userID, records); err != nil {
		s.log.Warn("payment history cache write failed", "user", userID, "error", err)
	}
	return records, nil
}

// SweepExpired flips every active lease whose end date has passed to expired
// and frees the cars. The transition itself is one conditional statement, so
// overlapping sweep runs cannot double-expire a lease.
func (s *leaseService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.leases.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range expired {
		l := &expired[i]
		if err := s.cars.SetAvailability(ctx, l.CarID, true); err != nil {
			s.log.Error("failed to release car of expired lease", "lease", l.ID, "car", l.CarID, "error", err)
		}
		s.invalidate(ctx, l.ID, l.UserID, l.CarID)
		s.auditLog(ctx, "leaseExpired", l.UserID, l.ID, l.CarID, "lease expired without return")
	}
	if len(expired) > 0 {
		s.log.Info("expired overdue leases", "count", len(expired))
	}
	return len(expired), nil
}

// SweepReminders emails renters whose lease ends within the next 24 hours.
// ClaimReminder throttles per lease, so an hourly schedule does not spam.
func (s *leaseService) SweepReminders(ctx context.Context) (int, error) {
	leases, err := s.leases.ListExpiring(ctx, s.now(), extendWindow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range leases {
		l := &leases[i]
		claimed, err := s.leases.ClaimReminder(ctx, l.ID, s.now(), s.reminderThrottle)
		if err != nil {
			s.log.Error("reminder claim failed", "lease", l.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		user, err := s.users.GetByID(ctx, l.UserID)
		if err != nil {
			s.log.Error("cannot resolve renter for reminder", "lease", l.ID, "user", l.UserID, "error", err)
			continue
		}

		payload := EmailJobPayload{
			LeaseID:   l.ID,
			To:        user.Email,
			CarName:   s.carName(ctx, l.CarID),
			StartDate: l.StartDate,
			EndDate:   l.EndDate,
		}
		if err := s.queue.Enqueue(ctx, queue.JobLeaseReminder, payload); err != nil {
			s.log.Error("failed to enqueue reminder", "lease", l.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// ReleaseStaleHolds cleans up pending leases whose payment never confirmed.
// An initial hold is cancelled and its car freed; a staged extension is
// rolled back to its previous end date.
func (s *leaseService) ReleaseStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.holdTimeout)
	holds, err := s.leases.ListStaleHolds(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range holds {
		l := &holds[i]
		if l.PrevEndDate == nil {
			ok, err := s.leases.Cancel(ctx, l.ID)
			if err != nil || !ok {
				if err != nil {
					s.log.Error("failed to cancel stale hold", "lease", l.ID, "error", err)
				}
				continue
			}
			if err := s.cars.SetAvailability(ctx, l.CarID, true); err != nil {
				s.log.Error("failed to release car of stale hold", "lease", l.ID, "car", l.CarID, "error", err)
			}
			s.auditLog(ctx, "holdReleased", l.UserID, l.ID, l.CarID, "payment not confirmed in time, hold released")
		} else {
			ok, err := s.leases.RevertExtension(ctx, l.ID)
			if err != nil || !ok {
				if err != nil {
					s.log.Error("failed to revert stale extension", "lease", l.ID, "error", err)
				}
				continue
			}
			s.auditLog(ctx, "extensionReverted", l.UserID, l.ID, l.CarID, "extension payment not confirmed in time, rolled back")
		}
		s.invalidate(ctx, l.ID, l.UserID, l.CarID)
		released++
	}
	if released > 0 {
		s.log.Info("released stale holds", "count", released)
	}
	return released, nil
}

func (s *leaseService) carName(ctx context.Context, carID string) string {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return "your car"
	}
	return car.Brand + " " + car.ModelName
}

// invalidate drops the cache entries a lease mutation makes stale. Cache
// failures are logged, never surfaced: the entries expire on TTL anyway.
func (s *leaseService) invalidate(ctx context.Context, leaseID, userID, carID string) {
	if err := s.cache.InvalidateLease(ctx, leaseID, userID); err != nil {
		s.log.Warn("lease cache invalidation failed", "lease", leaseID, "error", err)
	}
	if err := s.cache.InvalidateCar(ctx, carID); err != nil {
		s.log.Warn("car cache invalidation failed", "car", carID, "error", err)
	}
}

func (s *leaseService) auditLog(ctx context.Context, action, userID, leaseID, carID, description string) {
	entry := &domain.AuditEntry{
		Action:      action,
		UserID:      userID,
		LeaseID:     leaseID,
		CarID:       carID,
		Description: description,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn("audit append failed", "action", action, "lease", leaseID, "error", err)
	}
}
