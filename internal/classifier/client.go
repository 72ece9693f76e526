// Package classifier is the HTTP client for the local question-classification
// service, a black-box text classifier reached over a JSON POST.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a single classify endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a classifier client for the given endpoint URL.
func New(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type classifyRequest struct {
	Question string `json:"question"`
}

type classifyResponse struct {
	Success        bool   `json:"success"`
	Classification string `json:"classification"`
	Forced         bool   `json:"forced"`
	Error          string `json:"error"`
}

// Classify sends the concatenated question text and returns the label, e.g.
// "Passage Type: Natural Science | Question Type: Vocabulary | Question Difficulty: Medium".
func (c *Client) Classify(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(classifyRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, payload)
	}

	var out classifyResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("failed to decode classify response: %w", err)
	}
	if !out.Success {
		if out.Error != "" {
			return "", fmt.Errorf("classification failed: %s", out.Error)
		}
		return "", fmt.Errorf("classification failed")
	}
	return out.Classification, nil
}
