// Package services orchestrates report generation: client configuration,
// ingestion, the engine pipeline, persistence and rendering.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/clientcfg"
	"bilancio/internal/core"
	"bilancio/internal/engine"
	"bilancio/internal/ingest"
	applog "bilancio/internal/log"
	"bilancio/internal/render"
	"bilancio/internal/storage"
)

// ReportService runs the full pipeline for clients under a clients
// directory. Store, renderer and queue are each optional: a nil component is
// skipped with a warning so one missing collaborator never blocks report
// generation.
type ReportService struct {
	clientsDir  string
	store       *storage.SQLiteRepository
	renderer    render.ReportRenderer
	queue       *amqp.Client
	concurrency int
}

func NewReportService(clientsDir string, store *storage.SQLiteRepository,
	renderer render.ReportRenderer, queue *amqp.Client, concurrency int) *ReportService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReportService{
		clientsDir:  clientsDir,
		store:       store,
		renderer:    renderer,
		queue:       queue,
		concurrency: concurrency,
	}
}

// Generate runs one client's pipeline end to end and returns the report.
// Skipped-row diagnostics are logged but never block generation.
func (s *ReportService) Generate(ctx context.Context, client string) (core.ReportData, error) {
	dir := filepath.Join(s.clientsDir, client)

	cfg, err := clientcfg.Load(dir)
	if err != nil {
		return core.ReportData{}, fmt.Errorf("client %s: %w", client, err)
	}

	pipeline, err := engine.NewPipeline(cfg.NormalizerConfig(), cfg.Rules)
	if err != nil {
		return core.ReportData{}, fmt.Errorf("client %s: %w", client, err)
	}

	records, err := ingest.ReadFile(filepath.Join(dir, cfg.Files.Input))
	if err != nil {
		return core.ReportData{}, fmt.Errorf("client %s: %w", client, err)
	}

	report, skipped, err := pipeline.Run(client, records)
	if err != nil {
		return core.ReportData{}, fmt.Errorf("client %s: %w", client, err)
	}

	for _, sk := range skipped {
		slog.WarnContext(ctx, "Skipped malformed row",
			applog.FieldClient, client,
			applog.FieldRowRef, sk.Row,
			applog.FieldError, sk.Err)
	}

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report, cfg.Title(client)); err != nil {
			return core.ReportData{}, fmt.Errorf("client %s: %w", client, err)
		}
	}

	if s.renderer != nil {
		if err := s.renderer.Render(ctx, report, cfg.Title(client)); err != nil {
			return core.ReportData{}, fmt.Errorf("client %s: render: %w", client, err)
		}
	}

	slog.InfoContext(ctx, "Report generated",
		applog.FieldClient, client,
		applog.FieldTransactions, len(report.Transactions),
		applog.FieldSkippedRows, report.SkippedRows,
		"monthly_buckets", len(report.Monthly),
		"yearly_buckets", len(report.Yearly))
	return report, nil
}

// GenerateAll processes every client folder concurrently, each as an
// independent unit of work. One client's failure never aborts the others;
// all failures are collected into the returned error.
func (s *ReportService) GenerateAll(ctx context.Context) error {
	clients, err := s.ListClientFolders()
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		slog.InfoContext(ctx, "No client folders found", "dir", s.clientsDir)
		return nil
	}

	var (
		mu       sync.Mutex
		failures []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, client := range clients {
		g.Go(func() error {
			if _, err := s.Generate(gctx, client); err != nil {
				slog.ErrorContext(gctx, "Client report failed", applog.FieldClient, client, applog.FieldError, err)
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", client, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d clients failed:\n- %s",
			len(failures), len(clients), strings.Join(failures, "\n- "))
	}
	return nil
}

// Enqueue publishes a report job for asynchronous processing.
func (s *ReportService) Enqueue(ctx context.Context, client string) error {
	if s.queue == nil {
		return errors.New("no job queue configured")
	}
	return s.queue.PublishReportJob(ctx, client)
}

// ListClientFolders returns the names of folders carrying a client
// configuration, sorted for deterministic batch order.
func (s *ReportService) ListClientFolders() ([]string, error) {
	entries, err := os.ReadDir(s.clientsDir)
	if err != nil {
		return nil, fmt.Errorf("read clients dir %s: %w", s.clientsDir, err)
	}

	var clients []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.clientsDir, e.Name(), clientcfg.FileName)); err == nil {
			clients = append(clients, e.Name())
		}
	}
	sort.Strings(clients)
	return clients, nil
}

// Close closes the owned store and queue connections.
func (s *ReportService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close report service: %v", errs)
	}
	return nil
}
