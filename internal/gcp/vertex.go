package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Transcriber Model Prompts ---
const TranscriberUserPrompt = `You are an assistant that transcribes passages and questions from a given document image. You must be clear and concise. Do not give any introduction messages like 'Sure, here are the questions'.
You are to return it in valid JSON format like the following. Carefully analyze the image and encapsulate accordingly. If there are any line breaks, use \n for single line breaks and \n\n for double line breaks. If there are any italics, use *text*. If there is any bold text, use **text**. If there are any underlines, use __text__.
{
"passage": "[passage]",
"question": "[question]\n\nA) [Option A]\nB) [Option B]\nC) [Option C]\nD) [Option D]\n\n",
"correct_answer": "[Letter]"
}`

// --- Chat / Generator Model Prompts ---
const ChatSystemPrompt = `Always respond in valid JSON format with no extra text or explanations. You are a helpful assistant that can create text-based Reading and Writing exams.

If you are provided with a passage and/or a question, generate a question of the same difficulty that assesses the same skill (e.g., if the original question tests vocabulary, your question should also test vocabulary).

The question and options can include bold, italics, and underlines using the following formatting:
- Bold: **text** (use double asterisks)
- Italics: *text* (use single asterisks)
- Underline: __text__ (use double underscores)

Use \n\n for double line breaks and \n for single line breaks. The output must strictly follow this format:

{
  "response": "[question]\n\nA) [Option A]\nB) [Option B]\nC) [Option C]\nD) [Option D]\n\n**Correct Answer: [Letter]**",
  "correct_answer": "[Letter]"
}`

// GeneratorInstructions is appended to every per-row generation prompt.
const GeneratorInstructions = `Generate a new question of the same type and difficulty based on the original above. Keep the correct answer on the same letter. Change all proper nouns (names, places, organizations) to different ones. Preserve the difficulty level exactly.`

// refusalPhrases mark a model reply that declined to answer; such replies must
// fail the item rather than land in the sheet.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexClient holds the pre-configured generative models: a vision
// transcriber for source images/pages and a chat model for question
// generation.
type VertexClient struct {
	transcriberModel *genai.GenerativeModel
	chatModel        *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a client holding both models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	transcriberModel := baseClient.GenerativeModel("gemini-1.5-pro")
	transcriberModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	transcriberModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	chatModel := baseClient.GenerativeModel("gemini-1.5-pro")
	chatModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ChatSystemPrompt)},
	}
	chatModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
	}

	return &VertexClient{
		transcriberModel: transcriberModel,
		chatModel:        chatModel,
		baseClient:       baseClient,
	}, nil
}

// Complete sends a text prompt to the chat model and returns the raw reply
// text.
func (c *VertexClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chatModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp)
}

// CompleteWithFile sends a prompt plus inline file bytes (an image or a
// single-page PDF) to the transcriber model.
func (c *VertexClient) CompleteWithFile(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	part := genai.Blob{MIMEType: mimeType, Data: data}
	resp, err := c.transcriberModel.GenerateContent(ctx, part, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp)
}

// extractText concatenates the text parts of the first candidate and rejects
// refusals. Code fences are left in place for the parser to strip.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	content := strings.TrimSpace(sb.String())

	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("gemini response indicates refusal: %q", content)
		}
	}
	return content, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
