package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendsheet/internal/core"
	ports "spendsheet/internal/sheets"
)

// Config carries everything needed to reach one spreadsheet. It is built once from
// the application config and injected; the adapter never reads the environment.
type Config struct {
	SpreadsheetID string

	// Service account as email + PEM private key...
	ClientEmail string
	PrivateKey  string
	// ...or as a service account JSON document (inline or on disk).
	CredentialsJSON string
	CredentialsFile string
}

// Validate reports missing settings as configuration errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return &core.ConfigError{Setting: "GOOGLE_SPREADSHEET_ID", Err: errors.New("missing")}
	}
	hasKeyPair := strings.TrimSpace(c.ClientEmail) != "" && strings.TrimSpace(c.PrivateKey) != ""
	hasJSON := strings.TrimSpace(c.CredentialsJSON) != "" || strings.TrimSpace(c.CredentialsFile) != ""
	if !hasKeyPair && !hasJSON {
		return &core.ConfigError{
			Setting: "service account credentials",
			Err:     errors.New("set GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY, or GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE"),
		}
	}
	return nil
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu          sync.Mutex
	sheetIDs    map[string]int64
	provisioned map[string]bool
}

var _ ports.TabularStore = (*Client)(nil)

// New creates a Sheets client authenticated as a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient, err := newAuthenticatedClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg.SpreadsheetID), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
		provisioned:   make(map[string]bool),
	}
}

// newAuthenticatedClient builds an OAuth2 client on top of the pooled transport.
func newAuthenticatedClient(ctx context.Context, cfg Config) (*http.Client, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())

	if cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		slog.InfoContext(ctx, "Using service account key pair", "client_email", cfg.ClientEmail)
		conf := &jwt.Config{
			Email:      cfg.ClientEmail,
			PrivateKey: []byte(normalizePrivateKey(cfg.PrivateKey)),
			Scopes:     []string{gsheet.SpreadsheetsScope},
			TokenURL:   goauth.JWTTokenURL,
		}
		return conf.Client(ctx), nil
	}

	credentialsJSON := []byte(cfg.CredentialsJSON)
	if len(credentialsJSON) == 0 {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, &core.ConfigError{Setting: "GOOGLE_SERVICE_ACCOUNT_FILE", Err: err}
		}
		credentialsJSON = b
	}
	conf, err := goauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, &core.ConfigError{Setting: "service account JSON", Err: err}
	}
	slog.InfoContext(ctx, "Using service account JSON credentials", "client_email", conf.Email)
	return conf.Client(ctx), nil
}

// normalizePrivateKey restores newlines in keys pasted into a single env line.
func normalizePrivateKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.Trim(k, `"`)
	return strings.ReplaceAll(k, `\n`, "\n")
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API with
// connection pooling and keep-alive. No overall timeout: callers bound requests
// with their context.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{Transport: transport}
}

// EnsureSheet creates the sheet when missing and writes header into an empty first row.
func (c *Client) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	c.mu.Lock()
	done := c.provisioned[sheet]
	c.mu.Unlock()
	if done {
		return nil
	}

	if _, err := c.sheetID(ctx, sheet, true); err != nil {
		return err
	}

	rng := a1(sheet, "1:1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return c.classify(err, "read header "+rng)
	}
	if len(resp.Values) == 0 || ports.IsEmptyRow(ports.ToStrings(resp.Values[0])) {
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = h
		}
		vr := &gsheet.ValueRange{Values: [][]any{row}}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(sheet, "A1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return c.classify(err, "write header "+sheet)
		}
		slog.InfoContext(ctx, "Wrote sheet header", "sheet", sheet, "columns", len(header))
	}

	c.mu.Lock()
	c.provisioned[sheet] = true
	c.mu.Unlock()
	return nil
}

// sheetID resolves the numeric id of a sheet, creating the sheet when create is set.
func (c *Client) sheetID(ctx context.Context, sheet string, create bool) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[sheet]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, c.classify(err, "read spreadsheet metadata")
	}
	c.mu.Lock()
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[sheet]
	c.mu.Unlock()
	if ok {
		return id, nil
	}
	if !create {
		return 0, fmt.Errorf("sheet %q not found", sheet)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: sheet},
			},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, c.classify(err, "add sheet "+sheet)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}
	c.mu.Lock()
	c.sheetIDs[sheet] = id
	c.mu.Unlock()
	slog.InfoContext(ctx, "Created sheet", "sheet", sheet, "sheet_id", id)
	return id, nil
}

func (c *Client) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	rng := a1(sheet, "A:Z")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err, "read "+rng)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = ports.ToStrings(row)
	}
	return out, nil
}

func (c *Client) AppendRow(ctx context.Context, sheet string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1(sheet, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return c.classify(err, "append to "+sheet)
	}
	return nil
}

func (c *Client) UpdateRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := a1(sheet, fmt.Sprintf("A%d", row))
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return c.classify(err, "update "+rng)
	}
	return nil
}

func (c *Client) UpdateCell(ctx context.Context, sheet string, row, col int, value any) error {
	rng := a1(sheet, fmt.Sprintf("%s%d", ports.ColumnLetter(col), row))
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return c.classify(err, "update "+rng)
	}
	return nil
}

func (c *Client) DeleteRow(ctx context.Context, sheet string, row int) error {
	if row < 2 {
		return fmt.Errorf("refusing to delete header row of %s", sheet)
	}
	id, err := c.sheetID(ctx, sheet, false)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         id,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return c.classify(err, fmt.Sprintf("delete row %d of %s", row, sheet))
	}
	return nil
}

func (c *Client) ClearData(ctx context.Context, sheet string) error {
	rng := a1(sheet, "A2:Z")
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return c.classify(err, "clear "+rng)
	}
	return nil
}

func (c *Client) WriteRows(ctx context.Context, sheet string, startRow int, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	rng := a1(sheet, fmt.Sprintf("A%d", startRow))
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return c.classify(err, "write "+rng)
	}
	return nil
}

// classify turns "spreadsheet not found" and permission failures into
// configuration errors; everything else is returned wrapped.
func (c *Client) classify(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			if strings.Contains(strings.ToLower(gerr.Message), "spreadsheet") || !strings.Contains(op, "!") {
				return &core.ConfigError{Setting: "GOOGLE_SPREADSHEET_ID " + c.spreadsheetID, Err: err}
			}
		case http.StatusForbidden, http.StatusUnauthorized:
			return &core.ConfigError{Setting: "spreadsheet access for service account", Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// a1 quotes a sheet name for A1 notation.
func a1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}
