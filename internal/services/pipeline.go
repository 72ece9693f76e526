package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"examflow/internal/config"
	"examflow/internal/gcp"
	"examflow/internal/models"
)

// Column layout the whole pipeline depends on. Source, classification and
// generated columns are disjoint so the two append streams and the generator
// never collide by construction.
const (
	questionProbeColumn = "B" // B..D: passage, question, correct_answer
	classifyProbeColumn = "E" // E..G: classification sub-fields
	generateColumn      = "H" // H..: generated/regenerated variants
)

// PipelineConfig parameterizes one pipeline instance. The knobs that drifted
// across upstream revisions (sort order, page cap) are explicit here.
type PipelineConfig struct {
	SourceFolderID string
	PDFFolderID    string
	ScratchDir     string
	Sort           config.SortStrategy
	PDFPageLimit   int
}

// Pipeline drives one end-to-end batch: enumerate, filter, per-item
// fetch/complete/parse/append, export, classify, cleanup. Items are processed
// strictly sequentially in enumeration order; one item's failure never aborts
// the batch.
type Pipeline struct {
	blob       BlobStore
	tab        TabularStore
	completer  Completer
	classifier Classifier
	journal    *RunJournal
	cursor     *RowCursor
	exporter   *Exporter
	cfg        PipelineConfig
}

// NewPipeline wires a pipeline instance. journal may be nil.
func NewPipeline(blob BlobStore, tab TabularStore, completer Completer, cls Classifier, journal *RunJournal, exporter *Exporter, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		blob:       blob,
		tab:        tab,
		completer:  completer,
		classifier: cls,
		journal:    journal,
		cursor:     NewRowCursor(tab),
		exporter:   exporter,
		cfg:        cfg,
	}
}

// Cursor exposes the pipeline's row allocator so the chat surface shares the
// same allocation discipline.
func (p *Pipeline) Cursor() *RowCursor { return p.cursor }

// TranscribeFolder runs the image batch: every image in the source folder is
// transcribed into a fresh auto-named sheet. PDFs in this mode are recorded
// as failed and skipped; the PDF pipeline handles them.
func (p *Pipeline) TranscribeFolder(ctx context.Context) (*models.BatchResult, error) {
	runID := p.journal.Begin(ctx, "transcribe", "")

	items, err := p.blob.List(ctx, p.cfg.SourceFolderID)
	if err != nil {
		p.journal.Fail(ctx, runID, err.Error())
		return nil, &SourceListError{Err: err}
	}
	if len(items) == 0 {
		p.journal.Fail(ctx, runID, ErrNoFiles.Error())
		return nil, ErrNoFiles
	}
	sortItems(items, p.cfg.Sort)

	sheet, err := p.tab.CreateDefaultSheet(ctx)
	if err != nil {
		p.journal.Fail(ctx, runID, err.Error())
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	p.cursor.Reset(sheet)

	log := slog.With("sheet", sheet, "fileCount", len(items))
	log.Info("Starting image batch.")

	result := &models.BatchResult{SheetName: sheet}
	for _, item := range items {
		switch item.Kind {
		case models.KindPdf:
			result.Failed = append(result.Failed, models.ItemFailure{
				Item:   item,
				Stage:  StageFilter,
				Reason: "pdf files are handled by the pdf pipeline",
			})
			continue
		case models.KindUnsupported:
			result.Failed = append(result.Failed, models.ItemFailure{
				Item:   item,
				Stage:  StageFilter,
				Reason: "unsupported file type",
			})
			continue
		}
		p.processItem(ctx, item, sheet, result)
	}

	p.finishBatch(ctx, sheet, result)
	log.Info("Image batch complete.", "processed", len(result.Processed), "failed", len(result.Failed))
	p.journal.Finish(ctx, runID, result)
	return result, nil
}

// processItem runs one item through fetch, completion, parse and append.
// Fetch/complete/parse failures are recorded and isolated; an append failure
// is aggregated separately and does not mark the item failed.
func (p *Pipeline) processItem(ctx context.Context, item models.SourceItem, sheet string, result *models.BatchResult) {
	log := slog.With("file", item.Name, "sheet", sheet)

	data, err := p.blob.Fetch(ctx, item.ID)
	if err != nil {
		log.Error("Failed to fetch item.", "error", err)
		result.Failed = append(result.Failed, models.ItemFailure{Item: item, Stage: StageFetch, Reason: err.Error()})
		return
	}

	raw, err := p.completer.CompleteWithFile(ctx, gcp.TranscriberUserPrompt, item.MIMEType(), data)
	if err != nil {
		log.Error("Completion call failed.", "error", err)
		result.Failed = append(result.Failed, models.ItemFailure{Item: item, Stage: StageComplete, Reason: err.Error()})
		return
	}

	rec, err := Parse(raw)
	if err != nil {
		log.Error("Failed to parse model response.", "error", err, "raw", raw)
		result.Failed = append(result.Failed, models.ItemFailure{Item: item, Stage: StageParse, Reason: err.Error()})
		return
	}

	row := p.cursor.Next(ctx, sheet, questionProbeColumn)
	rng := fmt.Sprintf("%s!%s%d", sheet, questionProbeColumn, row)
	if err := p.tab.Append(ctx, rng, [][]string{{rec.Passage, rec.Question, rec.CorrectAnswer}}); err != nil {
		log.Error("Failed to append row.", "row", row, "error", err)
		result.AppendErrors = append(result.AppendErrors, fmt.Sprintf("%s (row %d): %v", item.Name, row, err))
	}
	result.Processed = append(result.Processed, models.ItemOutcome{Item: item, Record: rec})
}

// finishBatch runs the export, classify and cleanup stages. Their failures
// are recorded on the result but leave the batch's overall success untouched.
func (p *Pipeline) finishBatch(ctx context.Context, sheet string, result *models.BatchResult) {
	path, _, err := p.exporter.Export(ctx, sheet)
	if err != nil {
		slog.Error("Export failed.", "sheet", sheet, "error", err)
		result.ExportError = err.Error()
		p.removeArtifact(path, result)
		return
	}

	classified, err := p.classifyExport(ctx, path, sheet, result)
	result.Classified = classified
	if err != nil {
		slog.Error("Classification pass failed.", "sheet", sheet, "error", err)
		result.ClassifyError = err.Error()
	}

	p.removeArtifact(path, result)
}

func (p *Pipeline) removeArtifact(path string, result *models.BatchResult) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Warn("Failed to clean up artifact.", "path", path, "error", err)
		result.CleanupErrors = append(result.CleanupErrors, err.Error())
	}
}

// classifyExport reads the exported artifact row by row, classifies every row
// whose question cells are non-empty and appends the decomposed label at the
// classification probe column. A classifier failure for one row writes an
// "Error" marker and continues.
func (p *Pipeline) classifyExport(ctx context.Context, path, sheet string, result *models.BatchResult) (int, error) {
	rows, err := p.exporter.ReadRows(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := 1; i < len(rows); i++ { // row 0 holds headers
		row := rows[i]
		passage, question, answer := cellAt(row, 1), cellAt(row, 2), cellAt(row, 3)
		if passage == "" && question == "" && answer == "" {
			continue
		}

		var parts []string
		for _, s := range []string{passage, question, answer} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		text := strings.Join(parts, " ")

		fields := []string{"Error"}
		label, err := p.classifier.Classify(ctx, text)
		if err != nil {
			slog.Error("Failed to classify row.", "sheet", sheet, "row", i+1, "error", err)
		} else {
			fields = DecomposeLabel(label)
		}

		rowNum := p.cursor.Next(ctx, sheet, classifyProbeColumn)
		rng := fmt.Sprintf("%s!%s%d", sheet, classifyProbeColumn, rowNum)
		if err := p.tab.Append(ctx, rng, [][]string{fields}); err != nil {
			slog.Error("Failed to append classification.", "row", rowNum, "error", err)
			result.AppendErrors = append(result.AppendErrors, fmt.Sprintf("classification row %d: %v", rowNum, err))
			continue
		}
		count++
	}
	return count, nil
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
