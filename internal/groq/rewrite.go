package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const systemPrompt = "You are a professional editor specializing in ensemble transcript refinement."

const rewriteInstructions = `INSTRUCTIONS:
1. Cross-reference both transcripts to identify the correct technical terms and names.
2. Resolve any stutters or inaccuracies by comparing the two sources.
3. Rewrite the content into a highly coherent, readable book-style narrative.
4. Explain the concepts clearly as if writing a masterclass summary.
5. Fix all grammar and punctuation. Remove filler words (uh, um, you know).
OUTPUT ONLY THE CLEANED PROSE. NO INTRO OR EXPLANATIONS.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Rewrite sends both transcript texts to the chat model with the ensemble
// synthesis instruction and returns the corrected prose. An empty transcript
// is presented to the model as unavailable. The lookback string, when
// non-empty, carries the tail of the previous rewritten chunk so terminology
// and style stay consistent across chunk boundaries.
func (c *Client) Rewrite(ctx context.Context, captions, transcribed, lookback string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	prompt := buildPrompt(captions, transcribed, lookback)

	reqBody := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable.
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", &PermanentError{StatusCode: resp.StatusCode, Message: apiResp.Error.Message}
	}
	if len(apiResp.Choices) == 0 {
		return "", &TransientError{StatusCode: resp.StatusCode, Message: "no choices in response"}
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}

func buildPrompt(captions, transcribed, lookback string) string {
	if transcribed == "" {
		transcribed = "Not available."
	}
	if captions == "" {
		captions = "Not available."
	}

	var b strings.Builder
	b.WriteString("You are a master scientific editor and technical writer. Below are two imperfect transcripts of the same video.\n\n")
	if lookback != "" {
		fmt.Fprintf(&b, "The previous section of the book ends with:\n...%s\n\nContinue seamlessly from there; do not repeat it.\n\n", lookback)
	}
	fmt.Fprintf(&b, "TRANSCRIPT A (Whisper AI): %s\n\n", transcribed)
	fmt.Fprintf(&b, "TRANSCRIPT B (YouTube Captions): %s\n\n", captions)
	b.WriteString(rewriteInstructions)
	return b.String()
}
