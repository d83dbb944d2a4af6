package jobs

import (
	"citycar-backend/internal/config"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	leaseSvc service.LeaseService
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(leaseSvc service.LeaseService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		leaseSvc: leaseSvc,
		config:   cfg,
	}
}

// Config exposes the loaded configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllJobs runs every sweep once (for manual execution)
func (jr *JobRunner) RunAllJobs() {
	jr.ExpireLeases()
	jr.SendLeaseReminders()
	jr.ReleaseStaleHolds()
}
