package llm

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

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "google/gemini-3-flash-preview"

	appTitle = "Baisoku Survey"
)

type OpenRouterClient struct {
	apiKey      string
	model       string
	siteURL     string
	baseURL     string
	temperature float64
	client      *http.Client
}

func NewOpenRouterClient(apiKey, model, siteURL string) *OpenRouterClient {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterClient{
		apiKey:      apiKey,
		model:       model,
		siteURL:     siteURL,
		baseURL:     DefaultOpenRouterURL,
		temperature: DefaultTemperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL points the client at another OpenRouter-compatible endpoint.
func (c *OpenRouterClient) SetBaseURL(u string) {
	if u != "" {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// SetTemperature changes the temperature used when a request leaves it unset.
func (c *OpenRouterClient) SetTemperature(t float64) {
	c.temperature = t
}

type chatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Reasoning   *Reasoning `json:"reasoning,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts a chat completion and returns the first choice's content.
// A response without content yields "".
func (c *OpenRouterClient) Complete(ctx context.Context, r Request) (string, error) {
	messages := make([]Message, 0, len(r.Messages)+1)
	if r.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: r.System})
	}
	messages = append(messages, r.Messages...)

	temp := c.temperature
	if r.Temperature != nil {
		temp = *r.Temperature
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temp,
		MaxTokens:   r.MaxTokens,
		Reasoning:   r.Reasoning,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", appTitle)
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openrouter api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *apiResp.Choices[0].Message.Content, nil
}
