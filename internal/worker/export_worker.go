// Package worker runs queued export jobs: it re-executes the job's
// query against the store, serializes the result and hands the bytes to
// every configured delivery target.
package worker

import (
	"context"
	"fmt"

	"ledgerdesk/internal/amqp"
	"ledgerdesk/internal/console"
	"ledgerdesk/internal/export"
	"ledgerdesk/internal/log"
)

type ExportWorker struct {
	console *console.Console
	targets []Deliverer
	logger  *log.Logger
}

func NewExportWorker(c *console.Console, logger *log.Logger, targets ...Deliverer) *ExportWorker {
	return &ExportWorker{
		console: c,
		targets: targets,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Handle processes one export job. Delivery is all-or-nothing: a
// failing target fails the job so the broker requeues it.
func (w *ExportWorker) Handle(ctx context.Context, job *amqp.ExportJob) error {
	w.logger.InfoContext(ctx, "Running export job",
		log.FieldJobID, job.ID, log.FieldShape, string(job.Shape))

	var res console.ExportResult
	var err error
	switch job.Shape {
	case export.ShapeActors:
		res, err = w.console.ExportActorsCSV(ctx, job.ActorQuery())
	case export.ShapeTransactions:
		res, err = w.console.ExportTransactionsCSV(ctx, job.Query())
	default:
		return fmt.Errorf("unknown export shape %q", job.Shape)
	}
	if err != nil {
		return fmt.Errorf("serialize export: %w", err)
	}
	if res.Truncated {
		w.logger.WarnContext(ctx, "Export hit the row cap",
			log.FieldJobID, job.ID, log.FieldRows, res.Rows)
	}

	for _, t := range w.targets {
		if err := t.Deliver(ctx, job.ID, string(job.Shape), res.Data); err != nil {
			return fmt.Errorf("deliver export: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Export job delivered",
		log.FieldJobID, job.ID, log.FieldRows, res.Rows, log.FieldTruncated, res.Truncated)
	return nil
}
