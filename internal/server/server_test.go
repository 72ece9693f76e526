package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examflow/internal/models"
	"examflow/internal/services"
)

type stubRunner struct {
	result *models.BatchResult
	pdfs   []*models.BatchResult
	err    error
}

func (s *stubRunner) TranscribeFolder(ctx context.Context) (*models.BatchResult, error) {
	return s.result, s.err
}

func (s *stubRunner) ProcessPDFs(ctx context.Context) ([]*models.BatchResult, error) {
	return s.pdfs, s.err
}

type stubGenerator struct {
	result *models.GenerateResponse
	rec    models.ChatRecord
	err    error

	lastSheet string
	lastRow   int
}

func (s *stubGenerator) GenerateAll(ctx context.Context, sheet, extraPrompt string) (*models.GenerateResponse, error) {
	s.lastSheet = sheet
	return s.result, s.err
}

func (s *stubGenerator) RegenerateRow(ctx context.Context, sheet string, row int, extraPrompt string) (models.ChatRecord, error) {
	s.lastSheet, s.lastRow = sheet, row
	return s.rec, s.err
}

type stubExporter struct {
	path   string
	fileID string
	err    error
}

func (s *stubExporter) Export(ctx context.Context, sheetName string) (string, string, error) {
	return s.path, s.fileID, s.err
}

type stubChatter struct {
	resp models.ChatResponse
	err  error
}

func (s *stubChatter) Chat(ctx context.Context, prompt string) (models.ChatResponse, error) {
	return s.resp, s.err
}

type stubLister struct {
	names []string
	err   error
}

func (s *stubLister) SheetNames(ctx context.Context) ([]string, error) {
	return s.names, s.err
}

func newTestServer(runner *stubRunner, gen *stubGenerator, exp *stubExporter, chat *stubChatter, lister *stubLister) *Server {
	if runner == nil {
		runner = &stubRunner{}
	}
	if gen == nil {
		gen = &stubGenerator{}
	}
	if exp == nil {
		exp = &stubExporter{}
	}
	if chat == nil {
		chat = &stubChatter{}
	}
	if lister == nil {
		lister = &stubLister{}
	}
	return New(runner, gen, exp, chat, lister)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env models.Envelope
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
	}
	return rr, env
}

func TestTranscribeSuccessEnvelope(t *testing.T) {
	runner := &stubRunner{result: &models.BatchResult{
		SheetName: "Sheet5",
		Processed: []models.ItemOutcome{{}, {}},
		Failed:    []models.ItemFailure{{}},
	}}
	h := newTestServer(runner, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/transcribe", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "processed 2 item(s), 1 failed", env.Message)
	assert.NotNil(t, env.Data)
}

func TestTranscribeEmptyFolderIs404(t *testing.T) {
	runner := &stubRunner{err: services.ErrNoFiles}
	h := newTestServer(runner, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/transcribe", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestProcessPDFSuccess(t *testing.T) {
	runner := &stubRunner{pdfs: []*models.BatchResult{
		{SheetName: "exam01", Processed: []models.ItemOutcome{{}, {}}},
		{SheetName: "exam02", Processed: []models.ItemOutcome{{}}, Failed: []models.ItemFailure{{}}},
	}}
	h := newTestServer(runner, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/process-pdf", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "processed 3 item(s), 1 failed", env.Message)
}

func TestProcessPDFReturnsPartialResultsOnError(t *testing.T) {
	runner := &stubRunner{
		pdfs: []*models.BatchResult{{SheetName: "exam01", Processed: []models.ItemOutcome{{}}}},
		err:  errors.New("failed to split exam02.pdf"),
	}
	h := newTestServer(runner, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/process-pdf", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
	require.NotNil(t, env.Data, "completed batches must survive a mid-run failure")

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var results []models.BatchResult
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "exam01", results[0].SheetName)
}

func TestGenerateValidation(t *testing.T) {
	h := newTestServer(nil, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/generate-questions", `{"sheetName": ""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)

	rr, _ = doJSON(t, h, http.MethodPost, "/generate-questions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateRoutesToSheet(t *testing.T) {
	gen := &stubGenerator{result: &models.GenerateResponse{SheetName: "MySheet", Generated: 3}}
	h := newTestServer(nil, gen, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/generate-questions", `{"sheetName": "MySheet"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "MySheet", gen.lastSheet)
}

func TestRegenerateRejectsReservedRow(t *testing.T) {
	h := newTestServer(nil, nil, nil, nil, nil).Routes()

	for _, body := range []string{
		`{"sheetName": "MySheet", "row": 0}`,
		`{"sheetName": "MySheet", "row": 1}`,
		`{"sheetName": "", "row": 2}`,
	} {
		rr, env := doJSON(t, h, http.MethodPost, "/regenerate", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
		assert.False(t, env.Success)
	}
}

func TestRegenerateSuccess(t *testing.T) {
	gen := &stubGenerator{rec: models.ChatRecord{Response: "variant", CorrectAnswer: "C"}}
	h := newTestServer(nil, gen, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/regenerate", `{"sheetName": "MySheet", "row": 4}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 4, gen.lastRow)
}

func TestDownloadSheet(t *testing.T) {
	exp := &stubExporter{path: "converted_images/MySheet_x.xlsx", fileID: "file-1"}
	h := newTestServer(nil, nil, exp, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/download-sheet", `{"sheetName": "MySheet"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var resp models.DownloadSheetResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "file-1", resp.FileID)
	assert.Equal(t, "MySheet", resp.SheetName)
}

func TestSheetNames(t *testing.T) {
	lister := &stubLister{names: []string{"Sheet5", "exam01"}}
	h := newTestServer(nil, nil, nil, nil, lister).Routes()

	rr, env := doJSON(t, h, http.MethodGet, "/sheet-names", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sheetNames": ["Sheet5", "exam01"]}`, string(data))
}

func TestChatHistoryFlow(t *testing.T) {
	chat := &stubChatter{resp: models.ChatResponse{
		UserPrompt:    "What is the answer?",
		Response:      "The answer.",
		CorrectAnswer: "B",
	}}
	h := newTestServer(nil, nil, nil, chat, nil).Routes()

	// History starts empty.
	rr, _ := doJSON(t, h, http.MethodGet, "/chat/response", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, env := doJSON(t, h, http.MethodPost, "/chat", `{"prompt": "What is the answer?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)

	// Every accepted turn is appended and served back as a raw array.
	rr, _ = doJSON(t, h, http.MethodGet, "/chat/response", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var history []models.ChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "The answer.", history[0].Response)
}

func TestChatRequiresPrompt(t *testing.T) {
	h := newTestServer(nil, nil, nil, nil, nil).Routes()

	rr, env := doJSON(t, h, http.MethodPost, "/chat", `{"prompt": ""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
}
