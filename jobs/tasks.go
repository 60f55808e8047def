package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectorySeed writes the role/capability/year catalog.
	TaskDirectorySeed = "directory:seed"
)

// DirectorySeedPayload describes why a seed was requested.
type DirectorySeedPayload struct {
	Reason string `json:"reason"`
}

// NewDirectorySeedTask constructs an Asynq task.
func NewDirectorySeedTask(payload DirectorySeedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectorySeed, data), nil
}
