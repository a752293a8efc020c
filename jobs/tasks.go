package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskActivityPurge deletes activity rows past the retention window.
	TaskActivityPurge = "activity:purge"
)

// ActivityPurgePayload configures one purge run. A zero retention falls back
// to the worker default.
type ActivityPurgePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// Retention returns the payload retention as a duration.
func (p ActivityPurgePayload) Retention() time.Duration {
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewActivityPurgeTask builds the purge task.
func NewActivityPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(ActivityPurgePayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPurge, data, asynq.Queue(QueueDefault)), nil
}
