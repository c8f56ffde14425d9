// Package worker processes queued report jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

// ReportWorker consumes report jobs and regenerates client reports through
// the report service. Each job is one client, processed start to finish.
type ReportWorker struct {
	service *services.ReportService
	queue   *amqp.Client
}

func NewReportWorker(service *services.ReportService, queue *amqp.Client) *ReportWorker {
	return &ReportWorker{
		service: service,
		queue:   queue,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) error {
	return w.queue.ConsumeReportJobs(ctx, func(msg *amqp.ReportJobMessage) error {
		return w.HandleJob(ctx, msg)
	})
}

// HandleJob regenerates one client's report. A returned error requeues the
// job; the queue layer handles ack/nack.
func (w *ReportWorker) HandleJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	slog.InfoContext(ctx, "Processing report job",
		applog.FieldClient, msg.Client,
		"requested_at", msg.RequestedAt)

	report, err := w.service.Generate(ctx, msg.Client)
	if err != nil {
		return fmt.Errorf("generate report for %s: %w", msg.Client, err)
	}

	slog.InfoContext(ctx, "Report job done",
		applog.FieldClient, msg.Client,
		applog.FieldTransactions, len(report.Transactions),
		applog.FieldSkippedRows, report.SkippedRows)
	return nil
}
