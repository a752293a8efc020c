package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nou-pos/nou/jobs"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    enqueuer
	inspector queueInspector
	retention time.Duration
}

// NewJobsCLI initialises the CLI helpers against the given Redis connection.
func NewJobsCLI(redisOpts asynq.RedisClientOpt, retention time.Duration) *JobsCLI {
	return &JobsCLI{
		client:    asynq.NewClient(redisOpts),
		inspector: asynq.NewInspector(redisOpts),
		retention: retention,
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. A zero retention uses the
// configured default.
func (c *JobsCLI) Trigger(ctx context.Context, name string, retention time.Duration) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskActivityPurge:
		if retention <= 0 {
			retention = c.retention
		}
		task, err = jobs.NewActivityPurgeTask(retention)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// JobsOptions defines the arguments of the jobs command.
type JobsOptions struct {
	Action     string
	Name       string
	Retention  time.Duration
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Command runs "jobs trigger <name>" or "jobs stats" and returns the exit code.
func (c *JobsCLI) Command(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	switch opts.Action {
	case "trigger":
		if opts.Name == "" {
			_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: job name is required")
			return 1
		}
		info, err := c.Trigger(ctx, opts.Name, opts.Retention)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
				return 1
			}
			return 0
		}
		_, _ = fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown action %q (expected trigger or stats)\n", opts.Action)
		return 2
	}
}
