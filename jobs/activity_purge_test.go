package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/nou-pos/nou/internal/jobs"
)

type stubPurger struct {
	calls     int
	retention time.Duration
	removed   int64
	err       error
}

func (s *stubPurger) Purge(_ context.Context, retention time.Duration) (int64, error) {
	s.calls++
	s.retention = retention
	return s.removed, s.err
}

func newTestJob(p Purger) *ActivityPurgeJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewActivityPurgeJob(p, 90*24*time.Hour, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestActivityPurgeUsesDefaultRetention(t *testing.T) {
	purger := &stubPurger{removed: 12}
	job := newTestJob(purger)

	err := job.Handle(context.Background(), asynq.NewTask(TaskActivityPurge, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, 90*24*time.Hour, purger.retention)
}

func TestActivityPurgePayloadOverridesRetention(t *testing.T) {
	purger := &stubPurger{}
	job := newTestJob(purger)

	task, err := NewActivityPurgeTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, purger.retention)
}

func TestActivityPurgeSkipsRetryOnBadPayload(t *testing.T) {
	purger := &stubPurger{}
	job := newTestJob(purger)

	err := job.Handle(context.Background(), asynq.NewTask(TaskActivityPurge, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, purger.calls)
}

func TestActivityPurgePropagatesFailure(t *testing.T) {
	boom := errors.New("connection reset")
	job := newTestJob(&stubPurger{err: boom})

	err := job.Handle(context.Background(), asynq.NewTask(TaskActivityPurge, nil))
	assert.ErrorIs(t, err, boom)
}

func TestActivityPurgeTaskPayload(t *testing.T) {
	task, err := NewActivityPurgeTask(2160 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, TaskActivityPurge, task.Type())

	var payload ActivityPurgePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 2160, payload.RetentionHours)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name      string
		inspector queueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handler{inspector: tc.inspector, logger: logger}
			r := chi.NewRouter()
			h.MountRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
