package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"examflow/internal/config"
	"examflow/internal/gcp"
	"examflow/internal/models"
)

const (
	generatorStartRow = 2
	generatorMaxRows  = 1000

	// The sheet carries no authoritative row count, so end-of-data is
	// heuristic: either this many consecutive rows without a passage and
	// question, or the sentinel below in the passage-type column.
	consecutiveSkipLimit = 3
	endOfDataSentinel    = "None"
)

// Indexes into a formatted A:H row.
const (
	colPassage = iota + 1 // B
	colQuestion
	colAnswer
	colPassageType
	colQuestionType
	colDifficulty
)

// Generator produces variant questions from existing sheet rows. It reads
// rows with formatting metadata, folds the format flags into inline markup,
// prompts the completion model once per row and writes results into the
// generated column, never touching the source columns.
type Generator struct {
	tab       TabularStore
	completer Completer
	underline config.UnderlineStyle
}

// NewGenerator wires a generator.
func NewGenerator(tab TabularStore, completer Completer, underline config.UnderlineStyle) *Generator {
	return &Generator{tab: tab, completer: completer, underline: underline}
}

// GenerateAll sweeps the sheet from the first data row, generating one
// variant per populated row. Per-row failures are logged and counted but do
// not stop the sweep.
func (g *Generator) GenerateAll(ctx context.Context, sheet, extraPrompt string) (*models.GenerateResponse, error) {
	endRow := generatorStartRow + generatorMaxRows - 1
	rows, err := g.tab.ReadFormatted(ctx, sheet, generatorStartRow, endRow)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	result := &models.GenerateResponse{SheetName: sheet}
	skips := 0
	for i, cells := range rows {
		row := generatorStartRow + i

		if formattedAt(cells, colPassageType).Text == endOfDataSentinel {
			slog.Info("End-of-data sentinel reached.", "sheet", sheet, "row", row)
			break
		}
		if formattedAt(cells, colPassage).Text == "" || formattedAt(cells, colQuestion).Text == "" {
			skips++
			if skips >= consecutiveSkipLimit {
				slog.Info("Reached end of populated rows.", "sheet", sheet, "row", row)
				break
			}
			result.Skipped++
			continue
		}
		skips = 0

		if err := g.generateRow(ctx, sheet, row, cells, extraPrompt); err != nil {
			slog.Error("Failed to generate variant for row.", "sheet", sheet, "row", row, "error", err)
			result.Failed++
			continue
		}
		result.Generated++
	}
	return result, nil
}

// RegenerateRow generates a variant for a single row and returns it.
func (g *Generator) RegenerateRow(ctx context.Context, sheet string, row int, extraPrompt string) (models.ChatRecord, error) {
	if row <= headerRow {
		return models.ChatRecord{}, fmt.Errorf("row %d is reserved", row)
	}
	rows, err := g.tab.ReadFormatted(ctx, sheet, row, row)
	if err != nil {
		return models.ChatRecord{}, fmt.Errorf("failed to read row %d of %q: %w", row, sheet, err)
	}
	if len(rows) == 0 {
		return models.ChatRecord{}, fmt.Errorf("row %d of %q is empty", row, sheet)
	}
	cells := rows[0]
	if formattedAt(cells, colPassage).Text == "" || formattedAt(cells, colQuestion).Text == "" {
		return models.ChatRecord{}, fmt.Errorf("row %d of %q has no passage and question", row, sheet)
	}

	rec, err := g.complete(ctx, cells, extraPrompt)
	if err != nil {
		return models.ChatRecord{}, err
	}
	if err := g.writeVariant(ctx, sheet, row, rec); err != nil {
		return models.ChatRecord{}, err
	}
	return rec, nil
}

func (g *Generator) generateRow(ctx context.Context, sheet string, row int, cells []models.FormattedCell, extraPrompt string) error {
	rec, err := g.complete(ctx, cells, extraPrompt)
	if err != nil {
		return err
	}
	return g.writeVariant(ctx, sheet, row, rec)
}

func (g *Generator) complete(ctx context.Context, cells []models.FormattedCell, extraPrompt string) (models.ChatRecord, error) {
	prompt := g.buildPrompt(cells, extraPrompt)
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return models.ChatRecord{}, fmt.Errorf("completion call failed: %w", err)
	}
	rec, err := ParseChat(raw)
	if err != nil {
		return models.ChatRecord{}, err
	}
	return rec, nil
}

func (g *Generator) writeVariant(ctx context.Context, sheet string, row int, rec models.ChatRecord) error {
	rng := fmt.Sprintf("%s!%s%d", sheet, generateColumn, row)
	if err := g.tab.Update(ctx, rng, [][]string{{rec.Response, rec.CorrectAnswer}}); err != nil {
		return fmt.Errorf("failed to write variant to %s: %w", rng, err)
	}
	return nil
}

// buildPrompt embeds the row's markup-converted fields plus the fixed
// instruction set into one generation prompt.
func (g *Generator) buildPrompt(cells []models.FormattedCell, extraPrompt string) string {
	var sb strings.Builder
	sb.WriteString("Original passage: ")
	sb.WriteString(CellToMarkup(formattedAt(cells, colPassage), g.underline))
	sb.WriteString("\n\nOriginal question: ")
	sb.WriteString(CellToMarkup(formattedAt(cells, colQuestion), g.underline))
	sb.WriteString("\n\nCorrect answer: ")
	sb.WriteString(formattedAt(cells, colAnswer).Text)

	if pt := formattedAt(cells, colPassageType).Text; pt != "" {
		sb.WriteString("\nPassage type: ")
		sb.WriteString(pt)
	}
	if qt := formattedAt(cells, colQuestionType).Text; qt != "" {
		sb.WriteString("\nQuestion type: ")
		sb.WriteString(qt)
	}
	if d := formattedAt(cells, colDifficulty).Text; d != "" {
		sb.WriteString("\nDifficulty: ")
		sb.WriteString(d)
	}

	sb.WriteString("\n\n")
	sb.WriteString(gcp.GeneratorInstructions)
	if extraPrompt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(extraPrompt)
	}
	return sb.String()
}

func formattedAt(cells []models.FormattedCell, idx int) models.FormattedCell {
	if idx >= len(cells) {
		return models.FormattedCell{}
	}
	return cells[idx]
}
