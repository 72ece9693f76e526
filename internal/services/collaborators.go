package services

import (
	"context"

	"examflow/internal/models"
)

// BlobStore is the remote file storage the pipeline enumerates, fetches from
// and stages into. Implemented by gcp.DriveStore and gcp.GCSStore.
type BlobStore interface {
	List(ctx context.Context, folderID string) ([]models.SourceItem, error)
	Fetch(ctx context.Context, fileID string) ([]byte, error)
	Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error)
	Delete(ctx context.Context, fileID string) error
}

// TabularStore is the spreadsheet-like grid, addressed by "sheet!cellRange".
// Implemented by gcp.SheetsStore.
type TabularStore interface {
	CreateSheet(ctx context.Context, title string) (string, error)
	CreateDefaultSheet(ctx context.Context) (string, error)
	ReadRange(ctx context.Context, rng string) ([][]string, error)
	Append(ctx context.Context, rng string, values [][]string) error
	Update(ctx context.Context, rng string, values [][]string) error
	SheetNames(ctx context.Context) ([]string, error)
	ReadFormatted(ctx context.Context, sheetName string, startRow, endRow int) ([][]models.FormattedCell, error)
}

// Completer is the text/vision completion model. Implemented by
// gcp.VertexClient.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithFile(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// Classifier labels one question's concatenated text. Implemented by
// classifier.Client.
type Classifier interface {
	Classify(ctx context.Context, question string) (string, error)
}
