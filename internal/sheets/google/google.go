package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"dompet/internal/core"
	applog "dompet/internal/log"
	ports "dompet/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab the ledger is written to.
const DefaultSheetName = "Ledger"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger

	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID, "sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// loadCredentials prefers inline JSON over a file path.
func loadCredentials(cfg Config) ([]byte, error) {
	if v := strings.TrimSpace(cfg.CredentialsJSON); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func validateRow(r ports.LedgerRow) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("missing row id")
	}
	if !r.Kind.IsValid() {
		return core.ErrInvalidKind
	}
	if r.Amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return nil
}

// Upsert implements ports.LedgerWriter
func (c *Client) Upsert(ctx context.Context, row ports.LedgerRow) error {
	if err := validateRow(row); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	rowNum := findRow(ids, row.ID)
	if rowNum == 0 {
		if len(ids) == 0 {
			if err := c.writeRow(ctx, 1, ports.Header); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			ids = append(ids, "id")
		}
		rowNum = len(ids) + 1
	}

	if err := c.writeRow(ctx, rowNum, row.Values()); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Ledger row written",
		applog.NewFields().
			WithOperation(applog.OpSync).
			WithUser(row.UserID).
			WithRecord(string(row.Kind), row.ID, row.Amount.String()).
			ToSlice()...)
	return nil
}

// Delete implements ports.LedgerWriter
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	rowNum := findRow(ids, id)
	if rowNum == 0 {
		c.logger.DebugContext(ctx, "Ledger row already absent", "record_id", id)
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", rowNum, c.sheetName, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, ports.IDColumn, ports.IDColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return firstColumn(resp.Values), nil
}

func (c *Client) writeRow(ctx context.Context, rowNum int, values []any) error {
	rng := rowRange(c.sheetName, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func rowRange(sheet string, rowNum int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", sheet, ports.FirstColumn, rowNum, ports.LastColumn, rowNum)
}

// firstColumn flattens a single-column value range; empty rows stay as "".
func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return 0
}
