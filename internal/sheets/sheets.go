// Package sheets delivers finished exports into a Google Sheets
// spreadsheet, one worksheet row per CSV record.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerdesk/internal/log"
)

const defaultSheetName = "Exports"

type Target struct {
	service       *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewFromEnv builds a delivery target from GOOGLE_SPREADSHEET_ID,
// GOOGLE_EXPORT_SHEET_NAME and GOOGLE_SERVICE_ACCOUNT_JSON. Without
// inline credentials it falls back to application default credentials.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Target, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, fmt.Errorf("GOOGLE_SPREADSHEET_ID is required")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_EXPORT_SHEET_NAME"))
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); credsJSON != "" {
		opts = append(opts, goption.WithCredentialsJSON([]byte(credsJSON)))
	}

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Target{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// Deliver appends the CSV records of one export, prefixed by a marker
// row naming the job and shape so consecutive exports stay readable.
func (t *Target) Deliver(ctx context.Context, jobID, shape string, data []byte) error {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return fmt.Errorf("parse export csv: %w", err)
	}

	values := make([][]any, 0, len(records)+1)
	values = append(values, []any{fmt.Sprintf("# export %s (%s)", jobID, shape)})
	for _, rec := range records {
		row := make([]any, len(rec))
		for i, f := range rec {
			row[i] = f
		}
		values = append(values, row)
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err = t.service.Spreadsheets.Values.
		Append(t.spreadsheetID, t.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	t.logger.InfoContext(ctx, "Export appended to spreadsheet",
		log.FieldJobID, jobID, log.FieldShape, shape, log.FieldRows, len(records))
	return nil
}
