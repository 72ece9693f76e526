package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"examflow/internal/models"
)

// ProcessPDFs runs the PDF batch: for every PDF in the PDF folder, create a
// sheet named after the file, split the document into single-page PDFs,
// stage the pages back into the folder and run each page through the same
// per-item transcription loop as the image batch.
func (p *Pipeline) ProcessPDFs(ctx context.Context) ([]*models.BatchResult, error) {
	runID := p.journal.Begin(ctx, "process-pdf", "")

	p.clearScratch()
	p.clearStagedPages(ctx)

	items, err := p.blob.List(ctx, p.cfg.PDFFolderID)
	if err != nil {
		p.journal.Fail(ctx, runID, err.Error())
		return nil, &SourceListError{Err: err}
	}

	var pdfs []models.SourceItem
	for _, item := range items {
		if item.Kind == models.KindPdf {
			pdfs = append(pdfs, item)
		}
	}
	if len(pdfs) == 0 {
		p.journal.Fail(ctx, runID, ErrNoFiles.Error())
		return nil, ErrNoFiles
	}
	sort.SliceStable(pdfs, func(i, j int) bool { return pdfs[i].Name < pdfs[j].Name })

	var results []*models.BatchResult
	for _, pdf := range pdfs {
		result, err := p.processOnePDF(ctx, pdf)
		if err != nil {
			p.journal.Fail(ctx, runID, err.Error())
			return results, err
		}
		results = append(results, result)
	}

	if len(results) > 0 {
		p.journal.Finish(ctx, runID, results[len(results)-1])
	}
	return results, nil
}

func (p *Pipeline) processOnePDF(ctx context.Context, pdf models.SourceItem) (*models.BatchResult, error) {
	log := slog.With("pdf", pdf.Name)
	log.Info("Processing PDF file.")

	sheetName := strings.TrimSuffix(pdf.Name, filepath.Ext(pdf.Name))
	sheet, err := p.tab.CreateSheet(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet for %s: %w", pdf.Name, err)
	}
	p.cursor.Reset(sheet)

	data, err := p.blob.Fetch(ctx, pdf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", pdf.Name, err)
	}

	tempDir, err := os.MkdirTemp(p.cfg.ScratchDir, "pdf-split-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pages, err := splitPDF(tempDir, data, p.cfg.PDFPageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", pdf.Name, err)
	}
	log.Info("PDF split locally.", "pageCount", len(pages))

	staged, err := p.uploadPages(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("one or more pages failed to upload: %w", err)
	}
	log.Info("All pages staged.", "pageCount", len(staged))

	result := &models.BatchResult{SheetName: sheet}
	for _, page := range staged {
		p.processItem(ctx, page, sheet, result)
	}

	p.finishBatch(ctx, sheet, result)
	log.Info("PDF batch complete.", "sheet", sheet, "processed", len(result.Processed), "failed", len(result.Failed))
	return result, nil
}

// splitPDF validates, optimizes and splits a PDF into single-page files,
// capped at limit pages. Returns the page file paths in page order.
func splitPDF(tempDir string, data []byte, limit int) ([]string, error) {
	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write source pdf: %w", err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(sourcePath, optimizedPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount > limit {
		pageCount = limit
	}

	if err := api.SplitFile(optimizedPath, tempDir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	base := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pages = append(pages, fmt.Sprintf("%s_%d.pdf", base, i))
	}
	return pages, nil
}

// uploadPages stages split pages into the PDF folder concurrently. Staging is
// the one fan-out in the pipeline; transcription afterwards stays strictly
// sequential.
func (p *Pipeline) uploadPages(ctx context.Context, pages []string) ([]models.SourceItem, error) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	var mu sync.Mutex
	staged := make([]models.SourceItem, 0, len(pages))

	for i, localPath := range pages {
		pageNumber := i + 1
		localPath := localPath
		name := fmt.Sprintf("page_%05d.pdf", pageNumber)

		eg.Go(func() error {
			data, err := os.ReadFile(localPath)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			id, err := p.blob.Upload(gctx, p.cfg.PDFFolderID, name, "application/pdf", data)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			mu.Lock()
			staged = append(staged, models.SourceItem{ID: id, Name: name, Kind: models.KindPdf})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(staged, func(i, j int) bool { return staged[i].Name < staged[j].Name })
	return staged, nil
}

// clearScratch empties the local scratch directory of leftovers from previous
// runs. Best-effort.
func (p *Pipeline) clearScratch() {
	entries, err := os.ReadDir(p.cfg.ScratchDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read scratch dir.", "dir", p.cfg.ScratchDir, "error", err)
		}
		return
	}
	for _, entry := range entries {
		path := filepath.Join(p.cfg.ScratchDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove scratch entry.", "path", path, "error", err)
		}
	}
}

// stagedPageName matches exactly the page files uploadPages generates, so
// cleanup can never touch source documents.
var stagedPageName = regexp.MustCompile(`^page_\d{5}\.pdf$`)

// clearStagedPages deletes page files staged by previous runs from the PDF
// folder, leaving everything else in place. Best-effort.
func (p *Pipeline) clearStagedPages(ctx context.Context) {
	items, err := p.blob.List(ctx, p.cfg.PDFFolderID)
	if err != nil {
		slog.Warn("Failed to list PDF folder for cleanup.", "error", err)
		return
	}
	for _, item := range items {
		if !stagedPageName.MatchString(item.Name) {
			continue
		}
		if err := p.blob.Delete(ctx, item.ID); err != nil {
			slog.Warn("Failed to delete staged file.", "file", item.Name, "error", err)
		}
	}
}
