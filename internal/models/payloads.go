package models

// These structs define the JSON payloads for the HTTP trigger surface.

// Envelope is the uniform response wrapper for every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ChatRequest is the input for POST /chat.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse is one stored chat turn, served back by GET /chat/response.
type ChatResponse struct {
	UserPrompt    string `json:"user_prompt"`
	Response      string `json:"response"`
	CorrectAnswer string `json:"correct_answer"`
}

// GenerateRequest is the input for POST /generate-questions.
type GenerateRequest struct {
	SheetName      string `json:"sheetName"`
	GeneratePrompt string `json:"generate_prompt,omitempty"`
}

// GenerateResponse reports how far the generation sweep got.
type GenerateResponse struct {
	SheetName string `json:"sheetName"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// RegenerateRequest is the input for POST /regenerate.
type RegenerateRequest struct {
	SheetName        string `json:"sheetName"`
	Row              int    `json:"row"`
	RegeneratePrompt string `json:"regenerate_prompt,omitempty"`
}

// DownloadSheetRequest is the input for POST /download-sheet.
type DownloadSheetRequest struct {
	SheetName string `json:"sheetName"`
}

// DownloadSheetResponse reports where the exported artifact landed.
type DownloadSheetResponse struct {
	SheetName string `json:"sheetName"`
	FileName  string `json:"fileName"`
	FileID    string `json:"fileId"`
}
