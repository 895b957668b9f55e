//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"expenses/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Integration",
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	id := time.Now().Unix()
	e := core.Expense{
		Date:                time.Now().Format(core.DateLayout),
		ExpenseType:         string(core.Miscellaneous),
		Amount:              1.23,
		Currency:            "EUR",
		ReimbursementStatus: core.StatusPending,
	}

	if err := client.Upsert(ctx, id, e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	row, err := client.findRow(ctx, id)
	if err != nil || row == 0 {
		t.Fatalf("findRow() = %d, %v", row, err)
	}
	if err := client.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
}
