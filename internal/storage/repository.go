// Package storage persists generated reports in SQLite for the dashboard
// API. One row set per client: saving a new run replaces the previous one
// atomically. Amounts are stored as canonical decimal strings so nothing is
// lost to float conversion.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// ClientRun summarizes one stored report run.
type ClientRun struct {
	Client      string
	Title       string
	GeneratedAt time.Time
	SkippedRows int
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas are part of the DSN so every pooled connection gets them:
	// foreign_keys for the cascade from report_runs to its child tables,
	// busy_timeout so concurrent per-client runs wait for the write lock
	// instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveReport stores a complete run for report.Client, replacing any earlier
// run for the same client in a single transaction.
func (r *SQLiteRepository) SaveReport(ctx context.Context, report core.ReportData, title string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM report_runs WHERE client = ?`, report.Client); err != nil {
		return fmt.Errorf("delete previous run: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO report_runs (client, title, generated_at, skipped_rows) VALUES (?, ?, ?, ?)`,
		report.Client, title, report.GeneratedAt.UTC().Format(time.RFC3339), report.SkippedRows)
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("report run id: %w", err)
	}

	for _, view := range [][]core.BucketSummary{report.Monthly, report.Yearly} {
		for _, s := range view {
			if err := insertBucket(ctx, tx, runID, s); err != nil {
				return err
			}
		}
	}

	for _, t := range report.Transactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (run_id, tx_date, description, amount, category, source_row)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, t.Date.Format(dateLayout), t.Description, t.Amount.String(), t.Category, t.SourceRow); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.SourceRow, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}

	slog.InfoContext(ctx, "Report saved",
		"client", report.Client,
		"transactions", len(report.Transactions),
		"monthly_buckets", len(report.Monthly),
		"yearly_buckets", len(report.Yearly),
		"skipped_rows", report.SkippedRows)
	return nil
}

func insertBucket(ctx context.Context, tx *sql.Tx, runID int64, s core.BucketSummary) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bucket_kpis (run_id, year, month, revenue, expense, net) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, s.Bucket.Year, s.Bucket.Month,
		s.KPI.Revenue.String(), s.KPI.Expense.String(), s.KPI.Net.String()); err != nil {
		return fmt.Errorf("insert bucket %s: %w", s.Bucket, err)
	}
	for category, total := range s.Totals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bucket_totals (run_id, year, month, category, total) VALUES (?, ?, ?, ?, ?)`,
			runID, s.Bucket.Year, s.Bucket.Month, category, total.String()); err != nil {
			return fmt.Errorf("insert bucket %s category %s: %w", s.Bucket, category, err)
		}
	}
	return nil
}

// ListClients returns the stored runs, newest first.
func (r *SQLiteRepository) ListClients(ctx context.Context) ([]ClientRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT client, title, generated_at, skipped_rows FROM report_runs ORDER BY generated_at DESC, client`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var runs []ClientRun
	for rows.Next() {
		var run ClientRun
		var generated string
		if err := rows.Scan(&run.Client, &run.Title, &generated, &run.SkippedRows); err != nil {
			return nil, fmt.Errorf("scan client run: %w", err)
		}
		run.GeneratedAt, err = time.Parse(time.RFC3339, generated)
		if err != nil {
			return nil, fmt.Errorf("parse generated_at for %s: %w", run.Client, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetReport reassembles the stored ReportData for one client.
// Returns sql.ErrNoRows (wrapped) when the client has no stored run.
func (r *SQLiteRepository) GetReport(ctx context.Context, client string) (core.ReportData, error) {
	var (
		runID     int64
		generated string
		report    core.ReportData
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, generated_at, skipped_rows FROM report_runs WHERE client = ?`, client).
		Scan(&runID, &generated, &report.SkippedRows)
	if err != nil {
		return core.ReportData{}, fmt.Errorf("load run for %s: %w", client, err)
	}
	report.Client = client
	report.GeneratedAt, err = time.Parse(time.RFC3339, generated)
	if err != nil {
		return core.ReportData{}, fmt.Errorf("parse generated_at: %w", err)
	}

	monthly, yearly, err := r.loadBuckets(ctx, runID)
	if err != nil {
		return core.ReportData{}, err
	}
	report.Monthly, report.Yearly = monthly, yearly

	report.Transactions, err = r.loadTransactions(ctx, runID)
	if err != nil {
		return core.ReportData{}, err
	}
	return report, nil
}

func (r *SQLiteRepository) loadBuckets(ctx context.Context, runID int64) (monthly, yearly []core.BucketSummary, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, revenue, expense, net FROM bucket_kpis WHERE run_id = ? ORDER BY year, month`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load bucket kpis: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s                     core.BucketSummary
			revenue, expense, net string
		)
		if err := rows.Scan(&s.Bucket.Year, &s.Bucket.Month, &revenue, &expense, &net); err != nil {
			return nil, nil, fmt.Errorf("scan bucket kpis: %w", err)
		}
		if s.KPI.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, nil, fmt.Errorf("parse revenue for %s: %w", s.Bucket, err)
		}
		if s.KPI.Expense, err = decimal.NewFromString(expense); err != nil {
			return nil, nil, fmt.Errorf("parse expense for %s: %w", s.Bucket, err)
		}
		if s.KPI.Net, err = decimal.NewFromString(net); err != nil {
			return nil, nil, fmt.Errorf("parse net for %s: %w", s.Bucket, err)
		}
		s.Totals, err = r.loadTotals(ctx, runID, s.Bucket)
		if err != nil {
			return nil, nil, err
		}
		if s.Bucket.IsYearly() {
			yearly = append(yearly, s)
		} else {
			monthly = append(monthly, s)
		}
	}
	return monthly, yearly, rows.Err()
}

func (r *SQLiteRepository) loadTotals(ctx context.Context, runID int64, b core.Bucket) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, total FROM bucket_totals WHERE run_id = ? AND year = ? AND month = ?`,
		runID, b.Year, b.Month)
	if err != nil {
		return nil, fmt.Errorf("load totals for %s: %w", b, err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			category string
			raw      string
		)
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan totals for %s: %w", b, err)
		}
		total, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse total for %s %s: %w", b, category, err)
		}
		totals[category] = total
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context, runID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tx_date, description, amount, category, source_row FROM transactions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t         core.Transaction
			date, amt string
		)
		if err := rows.Scan(&date, &t.Description, &amt, &t.Category, &t.SourceRow); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		if t.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", amt, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
