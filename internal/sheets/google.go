package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gym-bot/pkg/logger"
)

const spreadsheetMime = "application/vnd.google-apps.spreadsheet"

// Google is a Backend over the Sheets v4 API, authorised with a service
// account.
type Google struct {
	sheets        *sheets.Service
	drive         *drive.Service
	spreadsheetID string
	logger        *logger.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// GoogleOptions selects the spreadsheet. ID wins over Name.
type GoogleOptions struct {
	// Credentials is the service account key, either inline JSON or a path.
	Credentials   string
	SpreadsheetID string
	Name          string
}

// NewGoogle authorises against Google and opens (or creates) the
// spreadsheet.
func NewGoogle(ctx context.Context, opts GoogleOptions, log *logger.Logger) (*Google, error) {
	data, err := credentialBytes(opts.Credentials)
	if err != nil {
		return nil, err
	}

	config, err := google.JWTConfigFromJSON(data,
		sheets.SpreadsheetsScope,
		drive.DriveScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	client := config.Client(ctx)

	sheetsSrv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSrv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	g := &Google{
		sheets:   sheetsSrv,
		drive:    driveSrv,
		logger:   log,
		sheetIDs: make(map[string]int64),
	}

	g.spreadsheetID = opts.SpreadsheetID
	if g.spreadsheetID == "" {
		if g.spreadsheetID, err = g.openByName(ctx, opts.Name); err != nil {
			return nil, err
		}
	}
	if err := g.loadSheetIDs(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func credentialBytes(cred string) ([]byte, error) {
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return nil, fmt.Errorf("service account credentials are empty")
	}
	if strings.HasPrefix(cred, "{") {
		return []byte(cred), nil
	}
	data, err := os.ReadFile(cred)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return data, nil
}

// openByName finds the spreadsheet shared with the service account, or
// creates it.
func (g *Google) openByName(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMime)
	list, err := g.drive.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find spreadsheet %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	created, err := g.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", name, err)
	}
	g.logger.Infow("Created spreadsheet", "name", name, "id", created.SpreadsheetId)
	return created.SpreadsheetId, nil
}

func (g *Google) loadSheetIDs(ctx context.Context) error {
	ss, err := g.sheets.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("load spreadsheet: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sh := range ss.Sheets {
		g.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}
	return nil
}

// EnsureTables creates missing worksheets and writes their header rows.
func (g *Google) EnsureTables(ctx context.Context) error {
	var requests []*sheets.Request
	g.mu.Lock()
	for name := range Headers {
		if _, ok := g.sheetIDs[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}
	g.mu.Unlock()

	if len(requests) > 0 {
		_, err := g.sheets.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add worksheets: %w", err)
		}
		if err := g.loadSheetIDs(ctx); err != nil {
			return err
		}
	}

	for name, header := range Headers {
		resp, err := g.sheets.Spreadsheets.Values.Get(g.spreadsheetID, name+"!1:1").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read header of %s: %w", name, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		if err := g.write(ctx, name, 1, header); err != nil {
			return fmt.Errorf("write header of %s: %w", name, err)
		}
		g.logger.Infow("Initialised worksheet", "table", name)
	}
	return nil
}

func (g *Google) Records(ctx context.Context, table string) ([]Record, error) {
	resp, err := g.sheets.Spreadsheets.Values.Get(g.spreadsheetID, table).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return toRecords(rows), nil
}

func (g *Google) Append(ctx context.Context, table string, values []string) error {
	_, err := g.sheets.Spreadsheets.Values.Append(g.spreadsheetID, table+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{toCells(values)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

func (g *Google) UpdateRow(ctx context.Context, table string, row int, values []string) error {
	if row < firstDataRow {
		return fmt.Errorf("row %d out of range in %s", row, table)
	}
	if err := g.write(ctx, table, row, values); err != nil {
		return fmt.Errorf("update %s row %d: %w", table, row, err)
	}
	return nil
}

func (g *Google) DeleteRow(ctx context.Context, table string, row int) error {
	if row < firstDataRow {
		return fmt.Errorf("row %d out of range in %s", row, table)
	}
	g.mu.Lock()
	sheetID, ok := g.sheetIDs[table]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	_, err := g.sheets.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete %s row %d: %w", table, row, err)
	}
	return nil
}

func (g *Google) write(ctx context.Context, table string, row int, values []string) error {
	_, err := g.sheets.Spreadsheets.Values.Update(g.spreadsheetID, fmt.Sprintf("%s!A%d", table, row), &sheets.ValueRange{
		Values: [][]interface{}{toCells(values)},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
