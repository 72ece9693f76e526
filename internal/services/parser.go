package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"examflow/internal/models"
)

var (
	errMissingFields = errors.New("record is missing passage, question or correct_answer")
	errMissingChat   = errors.New("record is missing response or correct_answer")

	fenceMarkers = regexp.MustCompile("```[a-zA-Z]*")
)

// stripFences removes markdown code-fence markers anywhere in the text and
// trims surrounding whitespace.
func stripFences(raw string) string {
	return strings.TrimSpace(fenceMarkers.ReplaceAllString(raw, ""))
}

// rewrap is the recovery transform for replies that fail direct decoding:
// escape bare quotes, protect already-escaped ones, double up line-break
// escapes (both literal \n sequences and raw line breaks), wrap the whole
// text as a single JSON string and decode it once. The result is expected to
// be valid JSON for a second decode. This handles a model that emitted an
// already-JSON-escaped block incorrectly nested, and raw line breaks inside
// string values.
func rewrap(cleaned string) ([]byte, error) {
	const quoteSentinel = "\x00"
	const breakSentinel = "\x01"
	s := strings.ReplaceAll(cleaned, `\"`, quoteSentinel)
	s = strings.ReplaceAll(s, `\\n`, breakSentinel)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, quoteSentinel, `\"`)
	s = strings.ReplaceAll(s, `\n`, `\\n`)
	s = strings.ReplaceAll(s, breakSentinel, `\\n`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", `\\n`)

	var once string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &once); err != nil {
		return nil, err
	}
	return []byte(once), nil
}

func decodeLenient(raw string, v interface{}) error {
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	b, err := rewrap(cleaned)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Parse extracts a question record from raw model text. It is pure: no side
// effects, same output for same input.
func Parse(raw string) (models.QuestionRecord, error) {
	var rec models.QuestionRecord
	if err := decodeLenient(raw, &rec); err != nil {
		return models.QuestionRecord{}, &ParseError{Raw: raw, Err: err}
	}
	if rec.Passage == "" || rec.Question == "" || rec.CorrectAnswer == "" {
		return models.QuestionRecord{}, &ParseError{Raw: raw, Err: errMissingFields}
	}
	return rec, nil
}

// ParseChat extracts a chat/generation record, which carries the fully
// formatted question body instead of separate passage and question fields.
func ParseChat(raw string) (models.ChatRecord, error) {
	var rec models.ChatRecord
	if err := decodeLenient(raw, &rec); err != nil {
		return models.ChatRecord{}, &ParseError{Raw: raw, Err: err}
	}
	if rec.Response == "" || rec.CorrectAnswer == "" {
		return models.ChatRecord{}, &ParseError{Raw: raw, Err: errMissingChat}
	}
	return rec, nil
}
