package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	ports "spesebot/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account credentials.
type Config struct {
	SpreadsheetID string
	// RecordsSheet holds one row per expense: ID, Category, Amount, Date.
	RecordsSheet string
	// JournalSheet receives the export lines written by the worker.
	JournalSheet string

	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
	journalSheet  string
}

// Ensure interface conformance
var (
	_ ports.Store         = (*Client)(nil)
	_ ports.JournalWriter = (*Client)(nil)
)

// New creates a Sheets client. Extra options replace the credential lookup
// and are meant for tests pointing the client at a fake endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.RecordsSheet) == "" {
		cfg.RecordsSheet = "Records"
	}
	if strings.TrimSpace(cfg.JournalSheet) == "" {
		cfg.JournalSheet = "Journal"
	}

	var (
		svc *gsheet.Service
		err error
	)
	if len(opts) > 0 {
		svc, err = gsheet.NewService(ctx, opts...)
	} else {
		svc, err = newSheetsService(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		recordsSheet:  cfg.RecordsSheet,
		journalSheet:  cfg.JournalSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		slog.InfoContext(ctx, "Checking GOOGLE_APPLICATION_CREDENTIALS", "path", serviceAccountFile)
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Create appends a row and returns its generated id.
func (c *Client) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	rec := core.ExpenseRecord{ID: uuid.NewString(), Category: category, Amount: amount, Date: date}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:D", c.recordsSheet)
	vr := &gsheet.ValueRange{Values: [][]any{encodeRow(rec)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.recordsSheet, err)
	}
	if resp.Updates != nil {
		slog.DebugContext(ctx, "Record appended to sheet", "id", rec.ID, "range", resp.Updates.UpdatedRange)
	}
	return rec.ID, nil
}

// QueryRange scans the records sheet and keeps rows dated inside r, in row order.
func (c *Client) QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	all, err := c.readRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0)
	for _, row := range all {
		if r.Contains(row.rec.Date) {
			out = append(out, row.rec)
		}
	}
	return out, nil
}

// QueryLatestByCategory returns the row with the highest date; the lower row wins ties.
func (c *Client) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	all, err := c.readRecords(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	var (
		latest core.ExpenseRecord
		found  bool
	)
	for _, row := range all {
		if row.rec.Category != category {
			continue
		}
		if !found || !row.rec.Date.Before(latest.Date) {
			latest = row.rec
			found = true
		}
	}
	if !found {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	return latest, nil
}

// Update rewrites amount and date of the row holding u.ID. Sheets has no
// conditional write, so u.Version is ignored.
func (c *Client) Update(ctx context.Context, u core.RecordUpdate) error {
	if err := core.ValidateAmount(u.Amount); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	all, err := c.readRecords(ctx)
	if err != nil {
		return err
	}
	rowNum := 0
	for _, row := range all {
		if row.rec.ID == u.ID {
			rowNum = row.number
			break
		}
	}
	if rowNum == 0 {
		return core.ErrRecordNotFound
	}

	rng := fmt.Sprintf("%s!C%d:D%d", c.recordsSheet, rowNum, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{{u.Amount.InexactFloat64(), u.Date.String()}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// AppendJournal appends one export line: timestamp, operation, id, category, amount, date.
func (c *Client) AppendJournal(ctx context.Context, op string, rec core.ExpenseRecord, at time.Time) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:F", c.journalSheet)
	row := []any{at.UTC().Format(time.RFC3339), op}
	row = append(row, encodeRow(rec)...)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.journalSheet, err)
	}
	return nil
}

type sheetRow struct {
	number int // 1-based sheet row
	rec    core.ExpenseRecord
}

func (c *Client) readRecords(ctx context.Context) ([]sheetRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:D", c.recordsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values)
}
