package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/epsum/epsumstock/internal/catalog"
	jobmetrics "github.com/epsum/epsumstock/internal/jobs"
	"github.com/epsum/epsumstock/internal/tenant"
)

// CustomerImporter creates a batch of customers atomically.
type CustomerImporter interface {
	CreateAllCustomers(ctx context.Context, owner int64, inputs []catalog.CustomerInput) ([]tenant.Customer, error)
}

// CustomerImportJob processes TaskCustomerImport tasks.
type CustomerImportJob struct {
	Importer CustomerImporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCustomerImportJob initialises the import handler.
func NewCustomerImportJob(importer CustomerImporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *CustomerImportJob {
	return &CustomerImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle creates every customer of the batch or none. Batches the store
// rejects as invalid or conflicting are not retried.
func (j *CustomerImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil {
		return errors.New("customer import: handler not configured")
	}
	var payload CustomerImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("customer import: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Owner <= 0 {
		return fmt.Errorf("customer import: missing owner: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskCustomerImport)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	logger := j.logger().With(slog.Int64("owner", payload.Owner), slog.Int("customers", len(payload.Customers)))
	logger.Info("starting customer import")

	created, err := j.Importer.CreateAllCustomers(ctx, payload.Owner, payload.Customers)
	if err != nil {
		if errors.Is(err, tenant.ErrValidation) || errors.Is(err, tenant.ErrNameTaken) {
			logger.Warn("customer import rejected", slog.Any("error", err))
			return fmt.Errorf("customer import: %w: %w", err, asynq.SkipRetry)
		}
		logger.Error("customer import failed", slog.Any("error", err))
		return fmt.Errorf("customer import: %w", err)
	}

	j.Metrics.AddImported(len(created))
	logger.Info("completed customer import",
		slog.Int("created", len(created)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *CustomerImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCustomerImport))
	}
	return slog.Default().With(slog.String("job", TaskCustomerImport))
}
