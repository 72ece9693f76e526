package models

import "strings"

// ItemKind partitions source files by what the pipeline can do with them.
type ItemKind int

const (
	KindUnsupported ItemKind = iota
	KindImage
	KindPdf
)

// SourceItem is one file enumerated from a blob store folder. Identity is the
// provider-assigned id; items are discarded once the batch completes.
type SourceItem struct {
	ID   string
	Name string
	Kind ItemKind
}

// KindOf classifies a filename by extension.
func KindOf(name string) ItemKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return KindPdf
	case strings.HasSuffix(lower, ".png"),
		strings.HasSuffix(lower, ".jpg"),
		strings.HasSuffix(lower, ".jpeg"):
		return KindImage
	default:
		return KindUnsupported
	}
}

// MIMEType returns the content type to use when sending the item's bytes to
// the completion model.
func (i SourceItem) MIMEType() string {
	lower := strings.ToLower(i.Name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// QuestionRecord is one transcribed exam question. Passage, Question and
// CorrectAnswer come from the transcription model; the classification fields are
// annotated later by the classify stage and never mutate the first three.
type QuestionRecord struct {
	Passage       string `json:"passage"`
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`

	PassageType     string `json:"passageType,omitempty"`
	QuestionType    string `json:"questionType,omitempty"`
	DifficultyLevel string `json:"difficultyLevel,omitempty"`
}

// ChatRecord is the shape the chat and generation prompts ask the model for:
// a fully formatted question body plus the answer letter.
type ChatRecord struct {
	Response      string `json:"response"`
	CorrectAnswer string `json:"correct_answer"`
}

// FormattedCell is a sheet cell with the text-format flags the generator folds
// into inline markup.
type FormattedCell struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
}
