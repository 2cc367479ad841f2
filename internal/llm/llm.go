// Package llm talks to the chat-completion providers that write questions,
// batch analyses and reports.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used when neither the request nor the client sets one.
const DefaultTemperature = 0.7

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Reasoning struct {
	Effort string `json:"effort"`
}

// Request is one completion call. Zero values mean "provider default" except
// Temperature, where nil falls back to the client's temperature.
type Request struct {
	System      string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
	Reasoning   *Reasoning
}

// Generator returns the text of a single completion.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Temperature is a convenience for building a Request.
func Temperature(t float64) *float64 { return &t }
