package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/escuela/alumnos/internal/rbac"
)

// Seeder is the part of rbac.Seeder the job needs.
type Seeder interface {
	EnsureSeeded(ctx context.Context) (rbac.SeedResult, error)
}

// DirectorySeedJob runs the directory seeder from the queue.
type DirectorySeedJob struct {
	Seeder Seeder
	Logger *slog.Logger
}

// NewDirectorySeedJob initialises the seed handler.
func NewDirectorySeedJob(seeder Seeder, logger *slog.Logger) *DirectorySeedJob {
	return &DirectorySeedJob{Seeder: seeder, Logger: logger}
}

// Handle executes one seed. A malformed payload is not retried.
func (j *DirectorySeedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Seeder == nil {
		return errors.New("directory seed: handler not configured")
	}
	var payload DirectorySeedPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	logger := j.logger().With(slog.String("reason", payload.Reason))
	result, err := j.Seeder.EnsureSeeded(ctx)
	if err != nil {
		logger.Error("directory seed failed", slog.Any("error", err))
		return err
	}
	logger.Info("directory seed finished",
		slog.Bool("skipped", result.Skipped),
		slog.Int("capabilities", result.Capabilities),
		slog.Int("roles", result.Roles),
		slog.Int("years", result.Years),
	)
	return nil
}

func (j *DirectorySeedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectorySeed))
	}
	return slog.Default().With(slog.String("job", TaskDirectorySeed))
}
