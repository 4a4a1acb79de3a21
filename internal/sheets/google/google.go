package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/core"
	ports "famledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client writes cycle reports to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.ReportWriter = (*Client)(nil)
	_ ports.ReportLister = (*Client)(nil)
)

// Options configures the client. CredentialsJSON wins over CredentialsFile.
// Endpoint and HTTPClient are for pointing the client at a fake server; when
// HTTPClient is set no credentials are loaded.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Endpoint        string
	HTTPClient      *http.Client
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Cycles"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var clientOpts []goption.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, goption.WithEndpoint(opts.Endpoint))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, goption.WithHTTPClient(opts.HTTPClient))
		return gsheet.NewService(ctx, clientOpts...)
	}

	credentialsJSON, err := loadCredentials(opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	clientOpts = append(clientOpts,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(inline, file string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendCycleReport writes r on the first empty row. An empty sheet gets the
// header row first.
func (c *Client) AppendCycleReport(ctx context.Context, r core.CycleReport) (string, error) {
	if r.AccountID == "" {
		return "", errors.New("report without account")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}

	var rows [][]any
	nextRow := len(resp.Values) + 1
	if len(resp.Values) == 0 {
		header := make([]any, len(ports.Header))
		for i, h := range ports.Header {
			header[i] = h
		}
		rows = append(rows, header)
	}
	rows = append(rows, ports.Row(r))
	lastRow := nextRow + len(rows) - 1

	dataRange := fmt.Sprintf("%s!A%d:J%d", c.sheetName, nextRow, lastRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	ref := fmt.Sprintf("%s!A%d:J%d", c.sheetName, lastRow, lastRow)
	slog.InfoContext(ctx, "Cycle report exported",
		"account_id", r.AccountID,
		"cycle_start", r.CycleStart.String(),
		"row_ref", ref)
	return ref, nil
}

// ListCycleReports reads back every report row of accountID. Rows that do not
// parse are skipped.
func (c *Client) ListCycleReports(ctx context.Context, accountID string) ([]core.CycleReport, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:J", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var out []core.CycleReport
	for i, row := range resp.Values {
		r, err := parseRow(toStrings(row))
		if err != nil {
			slog.DebugContext(ctx, "Skipping unparseable report row", "row", i+2, "error", err)
			continue
		}
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func parseRow(cols []string) (core.CycleReport, error) {
	if len(cols) < len(ports.Header) {
		return core.CycleReport{}, fmt.Errorf("expected %d columns, got %d", len(ports.Header), len(cols))
	}
	var (
		r   core.CycleReport
		err error
	)
	r.AccountID = cols[0]
	if r.CycleStart, err = core.ParseDate(cols[1]); err != nil {
		return core.CycleReport{}, fmt.Errorf("cycle start: %w", err)
	}
	if r.CycleEnd, err = core.ParseDate(cols[2]); err != nil {
		return core.CycleReport{}, fmt.Errorf("cycle end: %w", err)
	}
	amounts := []*core.Money{&r.Pending, &r.Approved, &r.Rejected, &r.Paid, &r.OneTimeInCycle, &r.RecurringRunRate}
	for i, dst := range amounts {
		d, err := decimal.NewFromString(strings.ReplaceAll(cols[3+i], ",", "."))
		if err != nil {
			return core.CycleReport{}, fmt.Errorf("column %s: %w", ports.Header[3+i], err)
		}
		*dst = core.NewMoney(d.Round(2))
	}
	if r.GeneratedAt, err = time.Parse(time.RFC3339, cols[9]); err != nil {
		return core.CycleReport{}, fmt.Errorf("generated at: %w", err)
	}
	return r, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
