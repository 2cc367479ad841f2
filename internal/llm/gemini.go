package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient calls Gemini directly instead of going through OpenRouter.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, temperature: DefaultTemperature}, nil
}

func (c *GeminiClient) SetTemperature(t float64) {
	c.temperature = float32(t)
}

func (c *GeminiClient) Complete(ctx context.Context, r Request) (string, error) {
	if len(r.Messages) == 0 {
		return "", errors.New("llm: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.model)
	temp := c.temperature
	if r.Temperature != nil {
		temp = float32(*r.Temperature)
	}
	model.SetTemperature(temp)
	if r.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(r.MaxTokens))
	}
	if strings.TrimSpace(r.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(r.System))
	}

	cs := model.StartChat()
	history, last := geminiHistory(r.Messages)
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("llm: gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// geminiHistory splits messages into prior turns and the final prompt.
// System messages are folded into the prompt stream as user turns.
func geminiHistory(msgs []Message) ([]*genai.Content, string) {
	var history []*genai.Content
	for _, m := range msgs[:len(msgs)-1] {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}
	return history, msgs[len(msgs)-1].Content
}

func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
