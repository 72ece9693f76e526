package services

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"

	"examflow/internal/models"
)

// RunJournal records one document per batch run in Firestore, giving each
// batch an authoritative status outside the spreadsheet. A nil journal is a
// no-op, so the pipeline can run without Firestore configured. Journal writes
// never fail a batch; they are logged and dropped.
type RunJournal struct {
	client     *firestore.Client
	collection string
}

// NewRunJournal creates a journal writing into the given collection.
func NewRunJournal(client *firestore.Client, collection string) *RunJournal {
	return &RunJournal{client: client, collection: collection}
}

// Begin creates the run document and returns its id.
func (j *RunJournal) Begin(ctx context.Context, trigger, sheetName string) string {
	if j == nil {
		return ""
	}
	rec := models.RunRecord{
		SheetName: sheetName,
		Trigger:   trigger,
		Status:    "RUNNING",
		CreatedAt: time.Now(),
	}
	ref, _, err := j.client.Collection(j.collection).Add(ctx, rec)
	if err != nil {
		slog.Warn("Failed to create run journal document.", "trigger", trigger, "error", err)
		return ""
	}
	return ref.ID
}

// Finish marks the run done with its final counts.
func (j *RunJournal) Finish(ctx context.Context, id string, result *models.BatchResult) {
	if j == nil || id == "" {
		return
	}
	updates := []firestore.Update{
		{Path: "status", Value: "DONE"},
		{Path: "sheetName", Value: result.SheetName},
		{Path: "processed", Value: len(result.Processed)},
		{Path: "failed", Value: len(result.Failed)},
	}
	if _, err := j.client.Collection(j.collection).Doc(id).Update(ctx, updates); err != nil {
		slog.Warn("Failed to finalize run journal document.", "id", id, "error", err)
	}
}

// Fail marks the run failed with a reason.
func (j *RunJournal) Fail(ctx context.Context, id, reason string) {
	if j == nil || id == "" {
		return
	}
	updates := []firestore.Update{
		{Path: "status", Value: "FAILED"},
		{Path: "errorDetails", Value: reason},
	}
	if _, err := j.client.Collection(j.collection).Doc(id).Update(ctx, updates); err != nil {
		slog.Warn("Failed to mark run journal document failed.", "id", id, "error", err)
	}
}
