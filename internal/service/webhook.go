package service

import (
	"context"
	"fmt"
	"log/slog"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/payment"
	"citycar-backend/internal/queue"
	"citycar-backend/internal/repository"
)

type webhookService struct {
	leases repository.LeaseRepository
	cars   repository.CarRepository
	events repository.WebhookEventRepository
	audit  repository.AuditRepository
	cache  Cache
	queue  Enqueuer
	log    *slog.Logger
}

func NewWebhookService(
	leases repository.LeaseRepository,
	cars repository.CarRepository,
	events repository.WebhookEventRepository,
	audit repository.AuditRepository,
	cache Cache,
	enq Enqueuer,
) WebhookService {
	return &webhookService{
		leases: leases,
		cars:   cars,
		events: events,
		audit:  audit,
		cache:  cache,
		queue:  enq,
		log:    logger.WithService("webhook"),
	}
}

// Reconcile applies one verified gateway event to lease state. Deliveries
// are deduplicated on (intent, event type); the lease transitions themselves
// are conditional updates, so even a dedupe miss cannot double-apply.
// A returned error makes the gateway redeliver; nil acknowledges the event.
func (s *webhookService) Reconcile(ctx context.Context, event *payment.Event) error {
	switch event.Type {
	case payment.EventIntentSucceeded, payment.EventIntentFailed, payment.EventIntentCanceled:
	default:
		s.log.Debug("ignoring event", "type", event.Type, "event", event.ID)
		return nil
	}

	fresh, err := s.events.Record(ctx, event.Intent.ID, event.Type, event.ID)
	if err != nil {
		return err
	}
	if !fresh {
		s.log.Info("duplicate delivery, already processed",
			"intent", event.Intent.ID, "type", event.Type, "event", event.ID)
		return nil
	}

	meta, err := domain.ParseIntentMetadata(event.Intent.Metadata)
	if err != nil {
		// Correctly signed but unreconcilable. Redelivery cannot fix bad
		// metadata, so acknowledge and leave a trail instead of retry-looping.
		s.log.Error("unreconcilable event", "intent", event.Intent.ID, "type", event.Type, "error", err)
		s.auditLog(ctx, "webhookUnreconciled", "", "", "",
			fmt.Sprintf("intent %s, event %s: %v", event.Intent.ID, event.Type, err))
		return nil
	}

	if err := s.apply(ctx, event, meta); err != nil {
		// Release the dedupe record so the redelivery gets another attempt.
		if remErr := s.events.Remove(ctx, event.Intent.ID, event.Type); remErr != nil {
			s.log.Error("failed to release dedupe record",
				"intent", event.Intent.ID, "type", event.Type, "error", remErr)
		}
		return err
	}
	return nil
}

func (s *webhookService) apply(ctx context.Context, event *payment.Event, meta domain.IntentMetadata) error {
	switch m := meta.(type) {
	case domain.CreateLeaseIntent:
		return s.applyCreate(ctx, event, m)
	case domain.ExtendLeaseIntent:
		return s.applyExtend(ctx, event, m)
	default:
		s.log.Error("unhandled intent action", "action", meta.Action())
		return nil
	}
}

func (s *webhookService) applyCreate(ctx context.Context, event *payment.Event, m domain.CreateLeaseIntent) error {
	switch event.Type {
	case payment.EventIntentSucceeded:
		ok, err := s.leases.Activate(ctx, m.LeaseID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("lease no longer pending, activation skipped", "lease", m.LeaseID)
			return nil
		}
		s.invalidate(ctx, m.LeaseID, m.UserID, m.CarID)
		s.enqueueEmail(ctx, queue.JobLeaseConfirmation, EmailJobPayload{
			LeaseID:     m.LeaseID,
			To:          m.Email,
			CarName:     s.carName(ctx, m.CarID),
			StartDate:   m.StartDate,
			EndDate:     m.EndDate,
			AmountCents: event.Intent.AmountCents,
		})
		s.auditLog(ctx, "leaseActivated", m.UserID, m.LeaseID, m.CarID, "payment confirmed, lease active")

	case payment.EventIntentFailed, payment.EventIntentCanceled:
		ok, err := s.leases.Cancel(ctx, m.LeaseID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("lease no longer pending, cancellation skipped", "lease", m.LeaseID)
			return nil
		}
		if err := s.cars.SetAvailability(ctx, m.CarID, true); err != nil {
			s.log.Error("failed to release car of cancelled lease", "lease", m.LeaseID, "car", m.CarID, "error", err)
		}
		s.invalidate(ctx, m.LeaseID, m.UserID, m.CarID)
		s.auditLog(ctx, "leaseCancelled", m.UserID, m.LeaseID, m.CarID, "payment failed, lease cancelled")
	}
	return nil
}

func (s *webhookService) applyExtend(ctx context.Context, event *payment.Event, m domain.ExtendLeaseIntent) error {
	switch event.Type {
	case payment.EventIntentSucceeded:
		ok, err := s.leases.ConfirmExtension(ctx, m.LeaseID, m.NewEndDate)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("no staged extension to confirm", "lease", m.LeaseID)
			return nil
		}
		s.invalidate(ctx, m.LeaseID, m.UserID, m.CarID)
		s.enqueueEmail(ctx, queue.JobLeaseExtended, EmailJobPayload{
			LeaseID:     m.LeaseID,
			To:          m.Email,
			CarName:     s.carName(ctx, m.CarID),
			EndDate:     m.NewEndDate,
			AmountCents: event.Intent.AmountCents,
		})
		s.auditLog(ctx, "leaseExtended", m.UserID, m.LeaseID, m.CarID,
			fmt.Sprintf("extension of %d days confirmed", m.AdditionalDays))

	case payment.EventIntentFailed, payment.EventIntentCanceled:
		ok, err := s.leases.RevertExtension(ctx, m.LeaseID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("no staged extension to revert", "lease", m.LeaseID)
			return nil
		}
		s.invalidate(ctx, m.LeaseID, m.UserID, m.CarID)
		s.auditLog(ctx, "extensionReverted", m.UserID, m.LeaseID, m.CarID, "extension payment failed, rolled back")
	}
	return nil
}

func (s *webhookService) enqueueEmail(ctx context.Context, job string, payload EmailJobPayload) {
	if payload.To == "" {
		return
	}
	if err := s.queue.Enqueue(ctx, job, payload); err != nil {
		s.log.Warn("failed to enqueue email", "job", job, "lease", payload.LeaseID, "error", err)
	}
}

func (s *webhookService) carName(ctx context.Context, carID string) string {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return "your car"
	}
	return car.Brand + " " + car.ModelName
}

func (s *webhookService) invalidate(ctx context.Context, leaseID, userID, carID string) {
	if err := s.cache.InvalidateLease(ctx, leaseID, userID); err != nil {
		s.log.Warn("lease cache invalidation failed", "lease", leaseID, "error", err)
	}
	if err := s.cache.InvalidateCar(ctx, carID); err != nil {
		s.log.Warn("car cache invalidation failed", "car", carID, "error", err)
	}
}

func (s *webhookService) auditLog(ctx context.Context, action, userID, leaseID, carID, description string) {
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
