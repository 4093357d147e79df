package interfaces

import "context"

// Message is a single turn in an LLM conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ContentGenerator produces text from a system instruction and conversation
type ContentGenerator interface {
	GenerateText(ctx context.Context, system string, messages []Message) (string, error)
}
