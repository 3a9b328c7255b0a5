// Package vision talks to an OpenAI-compatible vision/chat model. It is
// the automation engine's oracle: it pre-filters screenshots, evaluates
// trigger conditions against them, and generates comment text.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config selects the models and endpoint for the vision client.
type Config struct {
	APIKey       string
	BaseURL      string
	VisionModel  string // screenshot classification
	CommentModel string // comment generation
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gpt-4o"
	}
	if cfg.CommentModel == "" {
		cfg.CommentModel = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Chat wire types (OpenAI chat completions, with image content parts).

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
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
	} `json:"error,omitempty"`
}

// complete issues one chat completion and returns the first choice's text.
func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("chat API error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("chat API: HTTP %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// visionMessage packs one prompt and one inline JPEG into a user message.
func visionMessage(prompt, imageB64 string) chatMessage {
	return chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageB64}},
		},
	}
}

const normalPostPrompt = `Look at this social media screenshot. Check if you can see BOTH of these elements:

1. Like icon/button with a number (heart symbol with count like "1.2K", "234", etc.)
2. Comment icon/button with a number (comment symbol with count like "45", "1.1K", etc.)

If you can see BOTH like count AND comment count displayed: respond "YES"
If either one is missing or not visible: respond "NO"

Respond with ONLY "YES" or "NO".`

// CheckNormalPost asks whether the screenshot shows a canonical feed post
// (like-count and comment-count both visible). Any failure defaults to
// true so a flaky model never blocks the pipeline.
func (c *Client) CheckNormalPost(ctx context.Context, imageB64 string) bool {
	result, err := c.complete(ctx, chatRequest{
		Model:       c.cfg.VisionModel,
		Messages:    []chatMessage{visionMessage(normalPostPrompt, imageB64)},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		return true
	}
	return strings.ToUpper(strings.TrimSpace(result)) == "YES"
}

const commentSystemPrompt = "Generate a short, authentic, under 100 character TikTok comment for this video's context and description. It should look like a real TikTok comment. Reply ONLY with the comment."

const commentUserPrompt = "TikTok video; generate relevant short authentic comment for this type of video (content and description available if possible)"

// GenerateComment asks the model for one plain-text comment. Callers are
// responsible for fallback; this just surfaces what the model said.
func (c *Client) GenerateComment(ctx context.Context) (string, error) {
	return c.complete(ctx, chatRequest{
		Model: c.cfg.CommentModel,
		Messages: []chatMessage{
			{Role: "system", Content: commentSystemPrompt},
			{Role: "user", Content: commentUserPrompt},
		},
		MaxTokens:   100,
		Temperature: 0.85,
	})
}
