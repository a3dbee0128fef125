package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/service"
)

// SweepLockKey guards the expired sprint sweep across replicas
const SweepLockKey = "workflow:lock:sprint-sweep"

// Sweep outcomes recorded on the sweep_runs_total metric
const (
	SweepResultSuccess = "success"
	SweepResultPartial = "partial"
	SweepResultError   = "error"
	SweepResultSkipped = "skipped"
)

// Locker grants a lease on key; release is nil when someone else holds it
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SprintExpirer completes ACTIVE sprints whose end date has passed
type SprintExpirer interface {
	CompleteExpiredSprints(ctx context.Context) (*service.SweepResult, error)
}

// SprintSweeper runs CompleteExpiredSprints on a schedule
type SprintSweeper struct {
	sprints SprintExpirer
	locker  Locker
	timeout time.Duration
	lockTTL time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSprintSweeper creates a sweeper. locker may be nil for single-replica deployments.
func NewSprintSweeper(
	sprints SprintExpirer,
	locker Locker,
	timeout time.Duration,
	lockTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SprintSweeper {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if lockTTL < timeout {
		lockTTL = timeout
	}
	return &SprintSweeper{
		sprints: sprints,
		locker:  locker,
		timeout: timeout,
		lockTTL: lockTTL,
		metrics: m,
		logger:  logger,
	}
}

// Run implements cron.Job
func (s *SprintSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.Sweep(ctx)
}

// Sweep performs one pass and returns the outcome label
func (s *SprintSweeper) Sweep(ctx context.Context) string {
	start := time.Now()

	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, SweepLockKey, s.lockTTL)
		switch {
		case err != nil:
			// completion is a conditional update, so a duplicate sweep only finds nothing to do
			s.logger.Warn("Sweep lock unavailable, sweeping without it", zap.Error(err))
		case release == nil:
			s.logger.Debug("Sprint sweep already running elsewhere, skipping")
			s.metrics.RecordSweep(SweepResultSkipped, 0, time.Since(start))
			return SweepResultSkipped
		default:
			defer release()
		}
	}

	s.logger.Info("Starting expired sprint sweep")

	result, err := s.sprints.CompleteExpiredSprints(ctx)
	if err != nil {
		s.logger.Error("Expired sprint sweep failed", zap.Error(err))
		s.metrics.RecordSweep(SweepResultError, 0, time.Since(start))
		return SweepResultError
	}

	outcome := SweepResultSuccess
	if result.Failed > 0 {
		outcome = SweepResultPartial
	}

	failed := make([]string, 0, len(result.FailedIDs))
	for _, id := range result.FailedIDs {
		failed = append(failed, id.String())
	}
	s.logger.Info("Expired sprint sweep completed",
		zap.String("result", outcome),
		zap.Int("scanned", result.Scanned),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Strings("failed_ids", failed),
		zap.Duration("duration", time.Since(start)))

	s.metrics.RecordSweep(outcome, result.Completed, time.Since(start))
	return outcome
}
