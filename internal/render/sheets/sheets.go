// Package sheets renders reports into a Google Spreadsheet. Each client gets
// three tabs: an overview with the expense breakdown and per-year monthly
// tables, a ChartData tab with the year-over-year matrix, and a raw
// transactions tab for drill-down. Values only; charts and styling live in
// the spreadsheet itself.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	"bilancio/internal/render"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ render.ReportRenderer = (*Client)(nil)

// New creates a Sheets renderer for the given spreadsheet using Service
// Account credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewFromEnv creates a renderer from GOOGLE_SPREADSHEET_ID.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")))
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("no Google credentials configured")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Render writes the report into the spreadsheet, creating the client's tabs
// when missing and replacing their contents.
func (c *Client) Render(ctx context.Context, report core.ReportData, title string) error {
	tabs := map[string][][]interface{}{
		tabName(report.Client, "Overview"):     overviewValues(report, title),
		tabName(report.Client, "ChartData"):    chartDataValues(report),
		tabName(report.Client, "Transactions"): transactionValues(report),
	}

	names := make([]string, 0, len(tabs))
	for name := range tabs {
		names = append(names, name)
	}
	if err := c.ensureTabs(ctx, names); err != nil {
		return err
	}

	var data []*gsheet.ValueRange
	for name, values := range tabs {
		if _, err := c.svc.Spreadsheets.Values.Clear(
			c.spreadsheetID, quoteRange(name), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear tab %s: %w", name, err)
		}
		data = append(data, &gsheet.ValueRange{
			Range:  quoteRange(name) + "!A1",
			Values: values,
		})
	}

	_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write report values: %w", err)
	}

	slog.InfoContext(ctx, "Report rendered to spreadsheet",
		"client", report.Client,
		"spreadsheet_id", c.spreadsheetID,
		"tabs", len(tabs))
	return nil
}

// ensureTabs creates any missing sheet tabs in one batch update.
func (c *Client) ensureTabs(ctx context.Context, names []string) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	existing := make(map[string]bool, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}

	var requests []*gsheet.Request
	for _, name := range names {
		if existing[name] {
			continue
		}
		requests = append(requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: name},
			},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create tabs: %w", err)
	}
	return nil
}

func tabName(client, suffix string) string {
	return fmt.Sprintf("%s %s", client, suffix)
}

func quoteRange(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
