package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Tishkos/arbatis-pos/internal/export"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDataExport dumps the operational tables to a JSON file.
	TaskDataExport = "export:run"
	// TaskDraftSweep prunes tab registrations whose snapshots expired.
	TaskDraftSweep = "drafts:sweep"
)

// ExportPayload configures one export run.
type ExportPayload struct {
	IncludeImages bool `json:"include_images"`
}

// NewExportTask constructs an Asynq task.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDataExport, data), nil
}

// NewDraftSweepTask constructs an Asynq task.
func NewDraftSweepTask() *asynq.Task {
	return asynq.NewTask(TaskDraftSweep, nil)
}

// NewExportHandler builds the handler processing TaskDataExport tasks.
func NewExportHandler(logger *slog.Logger, exporter *export.Exporter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExportPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		start := time.Now()
		path, err := exporter.Run(ctx)
		if err != nil {
			logger.Error("export task failed", slog.Any("error", err))
			return err
		}
		logger.Info("export task done",
			slog.String("path", path),
			slog.Duration("took", time.Since(start)))
		return nil
	}
}

// NewDraftSweepHandler builds the handler processing TaskDraftSweep tasks.
func NewDraftSweepHandler(logger *slog.Logger, store *drafts.Store) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		pruned, err := store.SweepExpired(ctx)
		if err != nil {
			logger.Error("draft sweep failed", slog.Any("error", err))
			return err
		}
		if pruned > 0 {
			logger.Info("draft sweep done", slog.Int("pruned", pruned))
		}
		return nil
	}
}
