package services

import (
	"context"
	"fmt"
	"log/slog"

	"examflow/internal/models"
)

// chatSheetName is the fixed sheet that accumulates ad-hoc chat questions.
const chatSheetName = "Question"

// ChatService answers free-form exam-writing prompts and appends every reply
// to the shared chat sheet using the same row allocation as the pipeline.
type ChatService struct {
	tab       TabularStore
	completer Completer
	cursor    *RowCursor
}

// NewChatService wires a chat service sharing the given cursor.
func NewChatService(tab TabularStore, completer Completer, cursor *RowCursor) *ChatService {
	return &ChatService{tab: tab, completer: completer, cursor: cursor}
}

// Chat sends the user prompt to the model, parses the reply and appends it to
// the chat sheet. The append is best-effort: a sheet failure is logged but the
// reply is still returned.
func (s *ChatService) Chat(ctx context.Context, prompt string) (models.ChatResponse, error) {
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("completion call failed: %w", err)
	}

	rec, err := ParseChat(raw)
	if err != nil {
		return models.ChatResponse{}, err
	}

	row := s.cursor.Next(ctx, chatSheetName, questionProbeColumn)
	rng := fmt.Sprintf("%s!%s%d", chatSheetName, questionProbeColumn, row)
	if err := s.tab.Append(ctx, rng, [][]string{{rec.Response, rec.CorrectAnswer}}); err != nil {
		slog.Error("Failed to append chat reply.", "row", row, "error", err)
	}

	return models.ChatResponse{
		UserPrompt:    prompt,
		Response:      rec.Response,
		CorrectAnswer: rec.CorrectAnswer,
	}, nil
}
