package models

import "time"

// ItemOutcome records one successfully transcribed item.
type ItemOutcome struct {
	Item   SourceItem     `json:"file"`
	Record QuestionRecord `json:"response"`
}

// ItemFailure records one item that could not be transcribed, with the stage
// that failed it.
type ItemFailure struct {
	Item   SourceItem `json:"file"`
	Stage  string     `json:"stage"`
	Reason string     `json:"reason"`
}

// BatchResult is built incrementally during one pipeline run and returned once
// at the end. Stage errors that used to disappear into logs (append, export,
// classify, cleanup) are aggregated here so the caller can see them, but they
// do not flip the batch's overall success.
type BatchResult struct {
	SheetName string        `json:"sheetName"`
	Processed []ItemOutcome `json:"processed"`
	Failed    []ItemFailure `json:"failed"`

	AppendErrors  []string `json:"appendErrors,omitempty"`
	ExportError   string   `json:"exportError,omitempty"`
	ClassifyError string   `json:"classifyError,omitempty"`
	CleanupErrors []string `json:"cleanupErrors,omitempty"`

	Classified int `json:"classified,omitempty"`
}

// RunRecord is the journal document written per batch. It tracks the run the
// same way the spreadsheet rows never can: one authoritative status per batch.
type RunRecord struct {
	SheetName    string    `firestore:"sheetName,omitempty"`
	Trigger      string    `firestore:"trigger,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	Processed    int       `firestore:"processed,omitempty"`
	Failed       int       `firestore:"failed,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
}
