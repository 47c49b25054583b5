// Package sheets publishes report documents to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Config holds the spreadsheet destination.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

// Client writes tabular documents to one configured spreadsheet.
type Client struct {
	svc *sheetsapi.Service
	cfg Config
}

// NewClient builds a Sheets API client from a service-account credentials
// file.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	svc, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, cfg: cfg}, nil
}

// Export replaces the sheet contents with the given rows. The sheet is
// cleared first so rows from a longer past report never linger, then the
// whole document lands in a single update call.
func (c *Client) Export(ctx context.Context, rows [][]string) error {
	clearCall := c.svc.Spreadsheets.Values.Clear(c.cfg.SpreadsheetID, c.cfg.SheetName, &sheetsapi.ClearValuesRequest{})
	if _, err := clearCall.Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	vr := &sheetsapi.ValueRange{Values: toCells(rows)}
	update := c.svc.Spreadsheets.Values.
		Update(c.cfg.SpreadsheetID, fmt.Sprintf("%s!A1", c.cfg.SheetName), vr).
		ValueInputOption("RAW")
	if _, err := update.Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update sheet: %w", err)
	}
	return nil
}

// toCells converts string rows to the interface cells the API expects. Blank
// separator rows become a single empty cell so row positions survive the
// round trip.
func toCells(rows [][]string) [][]interface{} {
	cells := make([][]interface{}, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			cells[i] = []interface{}{""}
			continue
		}
		cells[i] = make([]interface{}, len(row))
		for j, v := range row {
			cells[i][j] = v
		}
	}
	return cells
}
