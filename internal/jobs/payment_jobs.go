package jobs

import (
	"context"
	"time"

	"rentfolio-backend/internal/logger"
)

// ExpireStalePayments fails PENDING payments whose provider callback never
// arrived within the configured TTL.
func (jr *JobRunner) ExpireStalePayments() {
	jr.runWithRecovery("ExpireStalePayments", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		ttl := time.Duration(jr.config.Payment.PendingTTLMinutes) * time.Minute
		expired, err := jr.payments.ExpireStale(ctx, ttl)
		if err != nil {
			logger.Error("Stale payment sweep failed", "error", err)
			return
		}
		if expired > 0 {
			logger.Info("Expired stale pending payments", "count", expired, "ttl", ttl)
		}
	})
}
