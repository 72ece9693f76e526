// Package server exposes the HTTP trigger surface. Every endpoint responds
// with the uniform {success, message, data?, error?} envelope.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"examflow/internal/models"
	"examflow/internal/services"
)

// BatchRunner drives the image and PDF pipelines.
type BatchRunner interface {
	TranscribeFolder(ctx context.Context) (*models.BatchResult, error)
	ProcessPDFs(ctx context.Context) ([]*models.BatchResult, error)
}

// VariantGenerator produces variant questions from existing rows.
type VariantGenerator interface {
	GenerateAll(ctx context.Context, sheet, extraPrompt string) (*models.GenerateResponse, error)
	RegenerateRow(ctx context.Context, sheet string, row int, extraPrompt string) (models.ChatRecord, error)
}

// SheetExporter exports one sheet to the blob store without classification.
type SheetExporter interface {
	Export(ctx context.Context, sheetName string) (path, fileID string, err error)
}

// Chatter answers one free-form prompt.
type Chatter interface {
	Chat(ctx context.Context, prompt string) (models.ChatResponse, error)
}

// SheetLister lists the spreadsheet's sheet names.
type SheetLister interface {
	SheetNames(ctx context.Context) ([]string, error)
}

// Server holds the endpoint dependencies plus the in-memory chat history.
type Server struct {
	runner    BatchRunner
	generator VariantGenerator
	exporter  SheetExporter
	chat      Chatter
	sheets    SheetLister

	mu      sync.Mutex
	history []models.ChatResponse
}

// New wires the HTTP surface.
func New(runner BatchRunner, generator VariantGenerator, exporter SheetExporter, chat Chatter, sheets SheetLister) *Server {
	return &Server{
		runner:    runner,
		generator: generator,
		exporter:  exporter,
		chat:      chat,
		sheets:    sheets,
	}
}

// Routes builds the endpoint mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /process-pdf", s.handleProcessPDF)
	mux.HandleFunc("POST /generate-questions", s.handleGenerate)
	mux.HandleFunc("POST /regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /download-sheet", s.handleDownloadSheet)
	mux.HandleFunc("GET /sheet-names", s.handleSheetNames)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/response", s.handleChatHistory)
	return mux
}

func writeEnvelope(w http.ResponseWriter, status int, env models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}

// writeError maps the error taxonomy onto status codes: an empty source is a
// 404, everything else at batch-setup granularity is a 500.
func writeError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrNoFiles) {
		status = http.StatusNotFound
	}
	writeEnvelope(w, status, models.Envelope{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeEnvelope(w, http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "could not parse JSON request body",
			Error:   err.Error(),
		})
		return false
	}
	return true
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.TranscribeFolder(r.Context())
	if err != nil {
		writeError(w, err, "failed to process files from folder")
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: batchMessage(result),
		Data:    result,
	})
}

func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	results, err := s.runner.ProcessPDFs(r.Context())
	if err != nil {
		// Batches completed before a mid-run failure are still returned,
		// alongside the error.
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrNoFiles) {
			status = http.StatusNotFound
		}
		env := models.Envelope{
			Success: false,
			Message: "failed to process PDFs",
			Error:   err.Error(),
		}
		if len(results) > 0 {
			env.Data = results
		}
		writeEnvelope(w, status, env)
		return
	}
	processed, failed := 0, 0
	for _, res := range results {
		processed += len(res.Processed)
		failed += len(res.Failed)
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: countMessage(processed, failed),
		Data:    results,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SheetName == "" {
		writeEnvelope(w, http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "sheetName is required",
		})
		return
	}
	result, err := s.generator.GenerateAll(r.Context(), req.SheetName, req.GeneratePrompt)
	if err != nil {
		writeError(w, err, "failed to generate questions")
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "generation complete",
		Data:    result,
	})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req models.RegenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SheetName == "" || req.Row < 2 {
		writeEnvelope(w, http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "sheetName and a row greater than 1 are required",
		})
		return
	}
	rec, err := s.generator.RegenerateRow(r.Context(), req.SheetName, req.Row, req.RegeneratePrompt)
	if err != nil {
		writeError(w, err, "failed to regenerate row")
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "row regenerated",
		Data:    rec,
	})
}

func (s *Server) handleDownloadSheet(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadSheetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SheetName == "" {
		writeEnvelope(w, http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "sheetName is required",
		})
		return
	}
	path, fileID, err := s.exporter.Export(r.Context(), req.SheetName)
	if err != nil {
		writeError(w, err, "failed to export sheet")
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "sheet exported",
		Data: models.DownloadSheetResponse{
			SheetName: req.SheetName,
			FileName:  path,
			FileID:    fileID,
		},
	})
}

func (s *Server) handleSheetNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.sheets.SheetNames(r.Context())
	if err != nil {
		writeError(w, err, "failed to list sheet names")
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "sheet names listed",
		Data:    map[string][]string{"sheetNames": names},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeEnvelope(w, http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "prompt is required",
		})
		return
	}
	resp, err := s.chat.Chat(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, err, "failed to process the request")
		return
	}

	s.mu.Lock()
	s.history = append(s.history, resp)
	s.mu.Unlock()

	writeEnvelope(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "response generated successfully",
		Data:    resp,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	history := make([]models.ChatResponse, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	if len(history) == 0 {
		writeEnvelope(w, http.StatusNotFound, models.Envelope{
			Success: false,
			Message: "no response available",
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(history); err != nil {
		slog.Error("Failed to write chat history.", "error", err)
	}
}

func batchMessage(result *models.BatchResult) string {
	return countMessage(len(result.Processed), len(result.Failed))
}

func countMessage(processed, failed int) string {
	return fmt.Sprintf("processed %d item(s), %d failed", processed, failed)
}
