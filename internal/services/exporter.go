package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter serializes a sheet into an XLSX file in the scratch directory and
// re-uploads it to the export folder. Export is best-effort and idempotent:
// re-running it re-reads the sheet's current state.
type Exporter struct {
	store          TabularStore
	blob           BlobStore
	scratchDir     string
	exportFolderID string
}

// NewExporter creates an exporter writing into scratchDir and uploading into
// the given blob folder.
func NewExporter(store TabularStore, blob BlobStore, scratchDir, exportFolderID string) *Exporter {
	return &Exporter{
		store:          store,
		blob:           blob,
		scratchDir:     scratchDir,
		exportFolderID: exportFolderID,
	}
}

// Export reads the sheet's full row range, writes it to a timestamped XLSX
// file locally and uploads it. It returns the local path and the uploaded
// file id; the caller is responsible for deleting the local artifact.
func (e *Exporter) Export(ctx context.Context, sheetName string) (string, string, error) {
	rows, err := e.store.ReadRange(ctx, fmt.Sprintf("%s!A1:Z1000", sheetName))
	if err != nil {
		return "", "", fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return "", "", fmt.Errorf("no data found in sheet %q", sheetName)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", "", fmt.Errorf("failed to name worksheet: %w", err)
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return "", "", fmt.Errorf("failed to address cell (%d,%d): %w", c+1, r+1, err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", "", fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	path := filepath.Join(e.scratchDir, uniqueFileName(sheetName))
	if err := f.SaveAs(path); err != nil {
		return "", "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return path, "", fmt.Errorf("failed to read exported file back: %w", err)
	}
	fileID, err := e.blob.Upload(ctx, e.exportFolderID, filepath.Base(path), xlsxMIMEType, data)
	if err != nil {
		return path, "", fmt.Errorf("failed to upload export: %w", err)
	}
	return path, fileID, nil
}

// ReadRows opens an exported XLSX file and returns its first worksheet as
// string rows.
func (e *Exporter) ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	return rows, nil
}

// uniqueFileName derives a timestamped artifact name for a sheet.
func uniqueFileName(sheetName string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("%s_%s.xlsx", sheetName, ts)
}
