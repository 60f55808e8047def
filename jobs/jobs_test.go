package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escuela/alumnos/internal/rbac"
	"github.com/escuela/alumnos/internal/rbac/rbactest"
)

func TestDirectorySeedJobHandle(t *testing.T) {
	store := rbactest.New()
	job := NewDirectorySeedJob(rbac.NewSeeder(store, nil, nil), nil)

	task, err := NewDirectorySeedTask(DirectorySeedPayload{Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, TaskDirectorySeed, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, job.Handle(context.Background(), task))
	_, roles, _, markers := store.Counts()
	assert.Equal(t, 2, roles)
	assert.Equal(t, 1, markers)
}

func TestDirectorySeedJobErrors(t *testing.T) {
	store := rbactest.New()
	store.FailOnRole = rbac.RoleAdministrator
	job := NewDirectorySeedJob(rbac.NewSeeder(store, nil, nil), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskDirectorySeed, nil))
	assert.ErrorIs(t, err, rbactest.ErrInjected)

	err = job.Handle(context.Background(), asynq.NewTask(TaskDirectorySeed, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var nilJob *DirectorySeedJob
	assert.Error(t, nilJob.Handle(context.Background(), asynq.NewTask(TaskDirectorySeed, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func health(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestJobsHealth(t *testing.T) {
	rr := health(t, NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"failed":0}`, rr.Body.String())

	rr = health(t, NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Failed: 1}}, nil))
	assert.JSONEq(t, `{"queue":"default","pending":3,"failed":1}`, rr.Body.String())

	rr = health(t, NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEnqueueDirectorySeedBucketsByHour(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	at := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	client.now = func() time.Time { return at }
	ctx := context.Background()

	info, err := client.EnqueueDirectorySeed(ctx, DirectorySeedPayload{Reason: "first"})
	require.NoError(t, err)
	assert.Equal(t, "directory:seed:2026030109", info.ID)

	at = at.Add(30 * time.Minute)
	_, err = client.EnqueueDirectorySeed(ctx, DirectorySeedPayload{Reason: "same hour"})
	assert.ErrorIs(t, err, asynq.ErrTaskIDConflict)

	// A task stuck in the archive stops blocking once the hour turns.
	at = at.Add(time.Hour)
	info, err = client.EnqueueDirectorySeed(ctx, DirectorySeedPayload{Reason: "next hour"})
	require.NoError(t, err)
	assert.Equal(t, "directory:seed:2026030110", info.ID)
}
