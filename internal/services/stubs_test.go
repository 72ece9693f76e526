package services

import (
	"context"
	"fmt"
	"sync"

	"examflow/internal/models"
)

// fakeTabular is an in-memory TabularStore. Cells are keyed by the exact
// range string they were written or seeded at.
type fakeTabular struct {
	mu sync.Mutex

	cells      map[string][][]string // seeded/written values by range
	appends    []string              // ranges appended to, in order
	updates    []string              // ranges updated, in order
	sheetNames []string
	formatted  map[string][][]models.FormattedCell

	defaultSheet string
	createErr    error
	readErr      error
	appendErr    error
	updateErr    error
}

func newFakeTabular() *fakeTabular {
	return &fakeTabular{
		cells:        make(map[string][][]string),
		formatted:    make(map[string][][]models.FormattedCell),
		defaultSheet: "Sheet5",
	}
}

func (f *fakeTabular) CreateSheet(ctx context.Context, title string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.sheetNames = append(f.sheetNames, title)
	return title, nil
}

func (f *fakeTabular) CreateDefaultSheet(ctx context.Context) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.sheetNames = append(f.sheetNames, f.defaultSheet)
	return f.defaultSheet, nil
}

func (f *fakeTabular) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.cells[rng], nil
}

func (f *fakeTabular) Append(ctx context.Context, rng string, values [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, rng)
	f.cells[rng] = values
	return nil
}

func (f *fakeTabular) Update(ctx context.Context, rng string, values [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, rng)
	f.cells[rng] = values
	return nil
}

func (f *fakeTabular) SheetNames(ctx context.Context) ([]string, error) {
	return f.sheetNames, nil
}

func (f *fakeTabular) ReadFormatted(ctx context.Context, sheetName string, startRow, endRow int) ([][]models.FormattedCell, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	all := f.formatted[sheetName]
	var out [][]models.FormattedCell
	for i, row := range all {
		rowNum := 2 + i // seeded rows start at the first data row
		if rowNum >= startRow && rowNum <= endRow {
			out = append(out, row)
		}
	}
	return out, nil
}

// seedRange pre-populates a cell range, simulating a prior write.
func (f *fakeTabular) seedRange(rng string, values [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[rng] = values
}

// fakeBlob is an in-memory BlobStore keyed by folder.
type fakeBlob struct {
	mu sync.Mutex

	folders map[string][]models.SourceItem
	content map[string][]byte
	listErr error

	fetchErrs map[string]error
	uploads   []string
	deleted   []string
	nextID    int
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		folders:   make(map[string][]models.SourceItem),
		content:   make(map[string][]byte),
		fetchErrs: make(map[string]error),
	}
}

func (f *fakeBlob) addFile(folderID, name string, data []byte) models.SourceItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := models.SourceItem{ID: fmt.Sprintf("id-%d", f.nextID), Name: name, Kind: models.KindOf(name)}
	f.folders[folderID] = append(f.folders[folderID], item)
	f.content[item.ID] = data
	return item
}

func (f *fakeBlob) List(ctx context.Context, folderID string) ([]models.SourceItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SourceItem(nil), f.folders[folderID]...), nil
}

func (f *fakeBlob) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErrs[fileID]; err != nil {
		return nil, err
	}
	data, ok := f.content[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}
	return data, nil
}

func (f *fakeBlob) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	item := f.addFile(folderID, name, data)
	f.mu.Lock()
	f.uploads = append(f.uploads, name)
	f.mu.Unlock()
	return item.ID, nil
}

func (f *fakeBlob) Delete(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileID)
	return nil
}

// fakeCompleter returns canned replies. File completions are keyed by the
// request payload so per-item failures can be simulated; fileReply answers
// any payload without a specific entry.
type fakeCompleter struct {
	reply    string
	replyErr error

	fileReply   string
	fileReplies map[string]string // keyed by payload content
	fileErrs    map[string]error
	calls       int
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{
		fileReplies: make(map[string]string),
		fileErrs:    make(map[string]error),
	}
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.replyErr != nil {
		return "", f.replyErr
	}
	return f.reply, nil
}

func (f *fakeCompleter) CompleteWithFile(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	f.calls++
	key := string(data)
	if err := f.fileErrs[key]; err != nil {
		return "", err
	}
	if reply, ok := f.fileReplies[key]; ok {
		return reply, nil
	}
	if f.fileReply != "" {
		return f.fileReply, nil
	}
	return "", fmt.Errorf("no canned reply for payload %q", key)
}

// fakeClassifier labels by question text, defaulting to a fixed label.
type fakeClassifier struct {
	label string
	err   error
	seen  []string
}

func (f *fakeClassifier) Classify(ctx context.Context, question string) (string, error) {
	f.seen = append(f.seen, question)
	if f.err != nil {
		return "", f.err
	}
	if f.label != "" {
		return f.label, nil
	}
	return "Passage Type: Natural Science | Question Type: Vocabulary | Question Difficulty: Medium", nil
}

func transcriptionReply(passage, question, answer string) string {
	return fmt.Sprintf(`{"passage": %q, "question": %q, "correct_answer": %q}`, passage, question, answer)
}

func plainCells(texts ...string) []models.FormattedCell {
	cells := make([]models.FormattedCell, 0, len(texts))
	for _, tx := range texts {
		cells = append(cells, models.FormattedCell{Text: tx})
	}
	return cells
}
