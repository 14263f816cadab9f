package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/epsum/epsumstock/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCustomerImport creates a parsed batch of customers for one owner.
	TaskCustomerImport = "customers:import"
)

// CustomerImportPayload carries one validated-on-arrival import batch.
type CustomerImportPayload struct {
	Owner       int64                   `json:"owner"`
	Customers   []catalog.CustomerInput `json:"customers"`
	RequestedAt time.Time               `json:"requestedAt"`
}

// NewCustomerImportTask constructs an Asynq task with a fresh task id.
func NewCustomerImportTask(payload CustomerImportPayload) (*asynq.Task, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("jobs: marshal customer import: %w", err)
	}
	id := uuid.NewString()
	task := asynq.NewTask(TaskCustomerImport, data,
		asynq.TaskID(id),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	return task, id, nil
}
