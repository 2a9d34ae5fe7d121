package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "vozruta/internal/sheets"

	"vozruta/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetBase is the sheet name the year is prefixed to ("2024 Viajes").
const DefaultSheetBase = "Viajes"

// Column order of a trip row; column A holds the trip id.
var header = []any{"id", "fecha", "seccion", "hora", "pasajero", "destino", "descripcion", "importe", "paquete"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *slog.Logger
}

// Ensure interface conformance
var _ ports.TripMirror = (*Client)(nil)

type Config struct {
	SpreadsheetID      string
	SheetBase          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuth              OAuthConfig
}

// NewClient creates a Sheets client. An OAuth client takes precedence over
// a service account; without either GOOGLE_APPLICATION_CREDENTIALS is used.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetBase, logger), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *slog.Logger) *Client {
	if sheetBase == "" {
		sheetBase = DefaultSheetBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase, logger: logger}
}

func newSheetsService(ctx context.Context, cfg Config, logger *slog.Logger) (*gsheet.Service, error) {
	if cfg.OAuth.Enabled() {
		logger.InfoContext(ctx, "Using OAuth user credentials")
		ts, err := oauthTokenSource(ctx, cfg.OAuth)
		if err != nil {
			return nil, err
		}
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// sheetFor returns the yearly sheet a trip date belongs to.
func (c *Client) sheetFor(date string) (string, error) {
	t, err := core.ParseDay(date)
	if err != nil {
		return "", err
	}
	return yearPrefixedName(c.sheetBase, t.Year()), nil
}

func (c *Client) AppendTrip(ctx context.Context, t core.Trip) (string, error) {
	if t.ID == nil {
		return "", fmt.Errorf("append trip: %w: missing id", core.ErrInvalidRecord)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet, err := c.sheetFor(t.Date)
	if err != nil {
		return "", fmt.Errorf("append trip %d: %w", *t.ID, err)
	}

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	// Redelivered events must not duplicate rows.
	idText := strconv.FormatInt(*t.ID, 10)
	for i, v := range ids {
		if v == idText {
			ref := fmt.Sprintf("%s!A%d:I%d", sheet, i+1, i+1)
			c.logger.InfoContext(ctx, "Trip already mirrored", "id", *t.ID, "sheets_ref", ref)
			return ref, nil
		}
	}

	nextRow := len(ids) + 1
	values := [][]any{}
	if nextRow == 1 {
		values = append(values, header)
		nextRow = 2
	}
	values = append(values, tripRow(t))

	start := nextRow - len(values) + 1
	rng := fmt.Sprintf("%s!A%d:I%d", sheet, start, nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}

	ref := fmt.Sprintf("%s!A%d:I%d", sheet, nextRow, nextRow)
	c.logger.InfoContext(ctx, "Trip appended to sheet", "id", *t.ID, "sheets_ref", ref)
	return ref, nil
}

func (c *Client) DeleteTrip(ctx context.Context, id int64, date string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet, err := c.sheetFor(date)
	if err != nil {
		return fmt.Errorf("delete trip %d: %w", id, err)
	}

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	row := indexOf(ids, strconv.FormatInt(id, 10))
	if row < 0 {
		return fmt.Errorf("trip %d in %s: %w", id, sheet, core.ErrNotFound)
	}

	rng := fmt.Sprintf("%s!A%d:I%d", sheet, row+1, row+1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Trip cleared from sheet", "id", id, "sheets_ref", rng)
	return nil
}

// readIDs returns column A of sheet, one entry per row.
func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func tripRow(t core.Trip) []any {
	pkg := ""
	if t.PackageType != nil {
		pkg = string(*t.PackageType)
	}
	return []any{
		*t.ID,
		t.Date,
		string(t.Section),
		core.Deref(t.Time),
		core.Deref(t.Passenger),
		core.Deref(t.Destination),
		t.Description,
		t.Amount,
		pkg,
	}
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a year.
func yearPrefixedName(base string, year int) string {
	b := strings.TrimSpace(base)
	if len(b) >= 5 {
		if _, err := strconv.Atoi(b[:4]); err == nil && b[4] == ' ' {
			return b
		}
	}
	return fmt.Sprintf("%d %s", year, b)
}
