package jobs

import (
	"rentfolio-backend/internal/config"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	payments service.PaymentService
	config   *config.Config
}

func NewJobRunner(payments service.PaymentService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		payments: payments,
		config:   cfg,
	}
}

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
