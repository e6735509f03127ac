//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/records/google

func TestIntegration_GoogleSheetsFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		RecordsSheet:    os.Getenv("GOOGLE_SHEET_NAME"),
		JournalSheet:    os.Getenv("GOOGLE_JOURNAL_SHEET_NAME"),
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	today := core.DateOf(time.Now())
	category := "integration-" + time.Now().Format("150405")

	id, err := client.Create(ctx, category, decimal.RequireFromString("12.34"), today)
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	t.Logf("Created record %s", id)

	records, err := client.QueryRange(ctx, core.DateRange{Start: today, End: today})
	if err != nil {
		t.Fatalf("Failed to query range: %v", err)
	}
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("created record %s not returned by range query", id)
	}

	latest, err := client.QueryLatestByCategory(ctx, category)
	if err != nil || latest.ID != id {
		t.Fatalf("latest: %+v err=%v", latest, err)
	}

	if err := client.Update(ctx, core.RecordUpdate{ID: id, Amount: decimal.RequireFromString("20"), Date: today}); err != nil {
		t.Fatalf("Failed to update record: %v", err)
	}
}
