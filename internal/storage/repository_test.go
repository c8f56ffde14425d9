package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleReport(client string) core.ReportData {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return core.ReportData{
		Client:      client,
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SkippedRows: 1,
		Monthly: []core.BucketSummary{{
			Bucket: core.Bucket{Year: 2024, Month: 1},
			Totals: map[string]decimal.Decimal{
				"Dining":                d("-4.50"),
				core.UncategorizedLabel: d("2000.00"),
			},
			KPI: core.KPISet{Revenue: d("2000.00"), Expense: d("4.50"), Net: d("1995.50")},
		}},
		Yearly: []core.BucketSummary{{
			Bucket: core.Bucket{Year: 2024},
			Totals: map[string]decimal.Decimal{
				"Dining":                d("-4.50"),
				core.UncategorizedLabel: d("2000.00"),
			},
			KPI: core.KPISet{Revenue: d("2000.00"), Expense: d("4.50"), Net: d("1995.50")},
		}},
		Transactions: []core.Transaction{
			{
				Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Description: "Coffee Shop",
				Amount:      d("-4.50"),
				Category:    "Dining",
				SourceRow:   "row 1",
			},
			{
				Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				Description: "Client Payment",
				Amount:      d("2000.00"),
				Category:    core.UncategorizedLabel,
				SourceRow:   "row 2",
			},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveReport(ctx, sampleReport("acme"), "Acme Report"); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := repo.GetReport(ctx, "acme")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Client != "acme" || got.SkippedRows != 1 {
		t.Errorf("run metadata = %q/%d", got.Client, got.SkippedRows)
	}
	if len(got.Monthly) != 1 || len(got.Yearly) != 1 {
		t.Fatalf("buckets = %d/%d", len(got.Monthly), len(got.Yearly))
	}
	jan := got.Monthly[0]
	if jan.Bucket != (core.Bucket{Year: 2024, Month: 1}) {
		t.Errorf("bucket = %v", jan.Bucket)
	}
	if !jan.Totals["Dining"].Equal(decimal.RequireFromString("-4.50")) {
		t.Errorf("Dining total = %s", jan.Totals["Dining"])
	}
	if !jan.KPI.Net.Equal(decimal.RequireFromString("1995.50")) {
		t.Errorf("Net = %s", jan.KPI.Net)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("transactions = %d", len(got.Transactions))
	}
	if got.Transactions[0].Description != "Coffee Shop" {
		t.Errorf("first transaction = %+v", got.Transactions[0])
	}
}

func TestSaveReportReplacesPreviousRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveReport(ctx, sampleReport("acme"), "v1"); err != nil {
		t.Fatal(err)
	}

	updated := sampleReport("acme")
	updated.SkippedRows = 7
	if err := repo.SaveReport(ctx, updated, "v2"); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetReport(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if got.SkippedRows != 7 {
		t.Errorf("SkippedRows = %d, want replacement run", got.SkippedRows)
	}

	runs, err := repo.ListClients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1 after replacement", len(runs))
	}
	if runs[0].Title != "v2" {
		t.Errorf("Title = %q", runs[0].Title)
	}
}

func TestGetReportUnknownClient(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetReport(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestSaveReportConcurrentClients(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	clients := []string{"acme", "globex", "initech", "umbrella"}
	errs := make(chan error, len(clients))
	for _, client := range clients {
		go func() {
			errs <- repo.SaveReport(ctx, sampleReport(client), client)
		}()
	}
	for range clients {
		if err := <-errs; err != nil {
			t.Errorf("concurrent SaveReport: %v", err)
		}
	}

	runs, err := repo.ListClients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != len(clients) {
		t.Errorf("got %d runs, want %d", len(runs), len(clients))
	}
}

func TestListClients(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, client := range []string{"acme", "globex"} {
		if err := repo.SaveReport(ctx, sampleReport(client), client); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := repo.ListClients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
}
