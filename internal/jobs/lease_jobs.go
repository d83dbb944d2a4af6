package jobs

import (
	"context"

	"citycar-backend/internal/logger"
)

// ExpireLeases transitions active leases past their end date to expired and
// frees their cars.
func (jr *JobRunner) ExpireLeases() {
	jr.runWithRecovery("ExpireLeases", func() {
		count, err := jr.leaseSvc.SweepExpired(context.Background())
		if err != nil {
			logger.Error("Failed to expire leases", "error", err)
			return
		}
		logger.Info("Expired leases", "count", count)
	})
}

// SendLeaseReminders queues end-of-lease reminder emails for leases ending
// within the next day.
func (jr *JobRunner) SendLeaseReminders() {
	jr.runWithRecovery("SendLeaseReminders", func() {
		count, err := jr.leaseSvc.SweepReminders(context.Background())
		if err != nil {
			logger.Error("Failed to send lease reminders", "error", err)
			return
		}
		logger.Info("Queued lease reminders", "count", count)
	})
}

// ReleaseStaleHolds cancels pending leases whose payment never confirmed and
// rolls back staged extensions.
func (jr *JobRunner) ReleaseStaleHolds() {
	jr.runWithRecovery("ReleaseStaleHolds", func() {
		count, err := jr.leaseSvc.ReleaseStaleHolds(context.Background())
		if err != nil {
			logger.Error("Failed to release stale holds", "error", err)
			return
		}
		logger.Info("Released stale holds", "count", count)
	})
}
