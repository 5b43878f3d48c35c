package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ports "budgetpal/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	scheduleSheet string
}

var _ ports.ScheduleMirror = (*Client)(nil)

// Options configures a Client. Exactly one of CredentialsJSON and
// CredentialsFile is needed; CredentialsJSON wins when both are set.
type Options struct {
	SpreadsheetID   string
	SheetBase       string // e.g. "Schedule"; the current year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	base := strings.TrimSpace(opts.SheetBase)
	if base == "" {
		base = "Schedule"
	}

	creds, err := loadCredentials(opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	c := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		scheduleSheet: yearPrefixedName(base, time.Now().Year()),
	}
	slog.InfoContext(ctx, "Google Sheets schedule mirror ready",
		"spreadsheet_id", spreadsheetID,
		"sheet", c.scheduleSheet)
	return c, nil
}

func loadCredentials(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// SheetName returns the year-prefixed sheet the client writes to.
func (c *Client) SheetName() string {
	return c.scheduleSheet
}

func (c *Client) UpsertSchedule(ctx context.Context, row ports.ScheduleRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{scheduleRowValues(row)}}

	if n := findRow(values, row.ID); n > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.scheduleSheet, n, lastColumn, n)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Schedule row updated", "id", row.ID, "row", n)
		return nil
	}

	if len(values) == 0 {
		vr.Values = append([][]any{headerValues()}, vr.Values...)
	}
	rng := fmt.Sprintf("%s!A:%s", c.scheduleSheet, lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.scheduleSheet, err)
	}
	slog.InfoContext(ctx, "Schedule row appended", "id", row.ID)
	return nil
}

func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	n := findRow(values, id)
	if n == 0 {
		slog.DebugContext(ctx, "Schedule row already absent", "id", id)
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet properties: %w", err)
	}
	sheetID, ok := sheetIDByTitle(ss.Sheets, c.scheduleSheet)
	if !ok {
		return fmt.Errorf("sheet %q not found", c.scheduleSheet)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", n, err)
	}
	slog.InfoContext(ctx, "Schedule row deleted", "id", id, "row", n)
	return nil
}

func (c *Client) ListSchedule(ctx context.Context) ([]ports.ScheduleRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return parseSchedule(values), nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:%s", c.scheduleSheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func sheetIDByTitle(sheets []*gsheet.Sheet, title string) (int64, bool) {
	for _, s := range sheets {
		if s.Properties != nil && strings.EqualFold(s.Properties.Title, title) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}
