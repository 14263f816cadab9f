package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/epsum/epsumstock/internal/catalog"
	"github.com/epsum/epsumstock/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	queue     catalog.ImportQueue
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{queue: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ImportCustomers parses a customer CSV and queues it for owner. It returns
// the task id and the number of rows queued.
func (c *JobsCLI) ImportCustomers(ctx context.Context, owner int64, r io.Reader) (string, int, error) {
	if c == nil || c.queue == nil {
		return "", 0, errors.New("jobs cli: client not configured")
	}
	if owner <= 0 {
		return "", 0, errors.New("jobs cli: owner must be positive")
	}
	customers, err := catalog.ParseCustomersCSV(r)
	if err != nil {
		return "", 0, err
	}
	id, err := c.queue.EnqueueCustomerImport(ctx, owner, customers)
	if err != nil {
		return "", 0, err
	}
	return id, len(customers), nil
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := jobs.DefaultQueueInfo(c.inspector)
	if err != nil {
		return QueueStats{}, fmt.Errorf("jobs cli: inspect queue: %w", err)
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}
