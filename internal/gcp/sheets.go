package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"examflow/internal/models"
)

// SheetsStore is the tabular store backed by one Google spreadsheet with named
// sheets, addressed by "sheet!cellRange".
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsStore creates a Sheets client from a service account key file.
func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID must be provided to create a sheets store")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsStore) addSheet(ctx context.Context, props *sheets.SheetProperties) (string, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: props}},
		},
	}
	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to add sheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return "", fmt.Errorf("addSheet reply missing sheet properties")
	}
	return resp.Replies[0].AddSheet.Properties.Title, nil
}

// CreateSheet adds a named sheet and returns the title actually assigned.
func (s *SheetsStore) CreateSheet(ctx context.Context, title string) (string, error) {
	return s.addSheet(ctx, &sheets.SheetProperties{Title: title})
}

// CreateDefaultSheet adds a sheet with a provider-assigned title ("Sheet7"
// style numbering) and returns it.
func (s *SheetsStore) CreateDefaultSheet(ctx context.Context) (string, error) {
	return s.addSheet(ctx, nil)
}

// ReadRange reads a cell range as strings. Absent trailing cells are absent
// from the returned rows, matching the API's ragged representation.
func (s *SheetsStore) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	rows := make([][]string, 0, len(vr.Values))
	for _, raw := range vr.Values {
		row := make([]string, 0, len(raw))
		for _, v := range raw {
			row = append(row, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toInterfaceRows(values [][]string) [][]interface{} {
	out := make([][]interface{}, 0, len(values))
	for _, row := range values {
		r := make([]interface{}, 0, len(row))
		for _, v := range row {
			r = append(r, v)
		}
		out = append(out, r)
	}
	return out
}

// Append writes values starting at the anchor range with RAW input, letting
// the API place them at the addressed cells.
func (s *SheetsStore) Append(ctx context.Context, rng string, values [][]string) error {
	vr := &sheets.ValueRange{Values: toInterfaceRows(values)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", rng, err)
	}
	return nil
}

// Update overwrites the addressed cells with RAW input.
func (s *SheetsStore) Update(ctx context.Context, rng string, values [][]string) error {
	vr := &sheets.ValueRange{Values: toInterfaceRows(values)}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

// SheetNames lists the titles of all sheets in the spreadsheet.
func (s *SheetsStore) SheetNames(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

// ReadFormatted reads columns A:H of the given row span with per-cell text
// format flags, which the generator folds into inline markup.
func (s *SheetsStore) ReadFormatted(ctx context.Context, sheetName string, startRow, endRow int) ([][]models.FormattedCell, error) {
	rng := fmt.Sprintf("%s!A%d:H%d", sheetName, startRow, endRow)
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Ranges(rng).
		IncludeGridData(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read formatted range %s: %w", rng, err)
	}
	if len(resp.Sheets) == 0 || len(resp.Sheets[0].Data) == 0 {
		return nil, nil
	}

	var rows [][]models.FormattedCell
	for _, rd := range resp.Sheets[0].Data[0].RowData {
		row := make([]models.FormattedCell, 0, len(rd.Values))
		for _, cd := range rd.Values {
			cell := models.FormattedCell{Text: cd.FormattedValue}
			if cd.EffectiveFormat != nil && cd.EffectiveFormat.TextFormat != nil {
				tf := cd.EffectiveFormat.TextFormat
				cell.Bold = tf.Bold
				cell.Italic = tf.Italic
				cell.Underline = tf.Underline
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
