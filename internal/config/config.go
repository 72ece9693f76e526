package config

import (
	"fmt"
	"os"
	"strconv"
)

// SortStrategy selects how enumerated source files are ordered before the
// per-item loop runs.
type SortStrategy string

const (
	SortNumeric       SortStrategy = "numeric"
	SortLexicographic SortStrategy = "lexicographic"
)

// UnderlineStyle selects the inline markup used for underlined sheet text. The
// upstream conventions drifted across revisions, so it is a setting rather
// than a constant.
type UnderlineStyle string

const (
	UnderlineDouble UnderlineStyle = "underscores"
	UnderlineSingle UnderlineStyle = "single"
	UnderlineBraces UnderlineStyle = "braces"
)

// BlobBackend selects the blob store implementation.
type BlobBackend string

const (
	BackendDrive BlobBackend = "drive"
	BackendGCS   BlobBackend = "gcs"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	Port string

	SpreadsheetID  string
	SourceFolderID string
	PDFFolderID    string
	ExportFolderID string

	SheetsCredentials string
	DriveCredentials  string

	ProjectID      string
	VertexAIRegion string

	ClassifierURL string
	ScratchDir    string

	Backend   BlobBackend
	GCSBucket string

	FirestoreCollection string

	Sort         SortStrategy
	Underline    UnderlineStyle
	PDFPageLimit int
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Load reads and validates the full service configuration from the
// environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		SpreadsheetID:       getEnv("SPREADSHEET_ID", ""),
		SourceFolderID:      getEnv("SOURCE_FOLDER_ID", ""),
		PDFFolderID:         getEnv("PDF_FOLDER_ID", ""),
		ExportFolderID:      getEnv("EXPORT_FOLDER_ID", ""),
		SheetsCredentials:   getEnv("SHEETS_CREDENTIALS", "credentials.json"),
		DriveCredentials:    getEnv("DRIVE_CREDENTIALS", "drivecreds.json"),
		ProjectID:           getEnv("PROJECT_ID", ""),
		VertexAIRegion:      getEnv("VERTEX_AI_REGION", "us-central1"),
		ClassifierURL:       getEnv("CLASSIFIER_URL", "http://localhost:5000/classify"),
		ScratchDir:          getEnv("SCRATCH_DIR", "converted_images"),
		Backend:             BlobBackend(getEnv("BLOB_BACKEND", string(BackendDrive))),
		GCSBucket:           getEnv("GCS_BUCKET", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", ""),
		Sort:                SortStrategy(getEnv("SORT_STRATEGY", string(SortLexicographic))),
		Underline:           UnderlineStyle(getEnv("UNDERLINE_STYLE", string(UnderlineDouble))),
	}

	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID environment variable must be set")
	}
	if cfg.SourceFolderID == "" {
		return nil, fmt.Errorf("SOURCE_FOLDER_ID environment variable must be set")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.Backend != BackendDrive && cfg.Backend != BackendGCS {
		return nil, fmt.Errorf("BLOB_BACKEND must be %q or %q, got %q", BackendDrive, BackendGCS, cfg.Backend)
	}
	if cfg.Backend == BackendGCS && cfg.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET must be set when BLOB_BACKEND=gcs")
	}
	switch cfg.Sort {
	case SortNumeric, SortLexicographic:
	default:
		return nil, fmt.Errorf("SORT_STRATEGY must be %q or %q, got %q", SortNumeric, SortLexicographic, cfg.Sort)
	}
	switch cfg.Underline {
	case UnderlineDouble, UnderlineSingle, UnderlineBraces:
	default:
		return nil, fmt.Errorf("unknown UNDERLINE_STYLE %q", cfg.Underline)
	}

	limit := getEnv("PDF_PAGE_LIMIT", "55")
	n, err := strconv.Atoi(limit)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("PDF_PAGE_LIMIT must be a positive integer, got %q", limit)
	}
	cfg.PDFPageLimit = n

	return cfg, nil
}
