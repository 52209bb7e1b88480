package scheduler

import (
	"context"

	"go.uber.org/zap"
)

const SessionSweepJob = "session-sweep"

type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

type LimiterPruner interface {
	Prune() int
}

// SessionSweep drops expired server sessions and forgets idle rate limiter buckets.
// limiter may be nil.
func SessionSweep(sessions SessionPurger, limiter LimiterPruner, log *zap.SugaredLogger) JobFunc {
	return func(ctx context.Context) error {
		purged, err := sessions.PurgeExpired(ctx)
		if err != nil {
			return err
		}

		pruned := 0
		if limiter != nil {
			pruned = limiter.Prune()
		}

		if purged > 0 || pruned > 0 {
			log.Infow("session sweep", "sessions_purged", purged, "limiters_pruned", pruned)
		}
		return nil
	}
}
