package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nou-pos/nou/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Purger removes activity rows older than a retention window.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// ActivityPurgeJob enforces activity retention.
type ActivityPurgeJob struct {
	Activity  Purger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewActivityPurgeJob initialises the purge handler.
func NewActivityPurgeJob(activity Purger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityPurgeJob {
	return &ActivityPurgeJob{Activity: activity, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle executes one purge run.
func (j *ActivityPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Activity == nil {
		return errors.New("activity purge: handler not configured")
	}
	var payload ActivityPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := payload.Retention()
	if retention <= 0 {
		retention = j.Retention
	}

	tracker := j.metrics().Track(TaskActivityPurge)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Duration("retention", retention))
	start := time.Now()
	removed, err := j.Activity.Purge(ctx, retention)
	if err != nil {
		logger.Error("purge failed", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskActivityPurge, removed)
	logger.Info("completed activity purge",
		slog.Int64("removed", removed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ActivityPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskActivityPurge))
	}
	return slog.Default().With(slog.String("job", TaskActivityPurge))
}

func (j *ActivityPurgeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
