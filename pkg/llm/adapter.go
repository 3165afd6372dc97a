package llm

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries a full conversation plus an optional system prompt.
type Request struct {
	Messages     []Message
	SystemPrompt string
}

// Response is the assistant's reply.
type Response struct {
	Text         string
	FinishReason string
}

// Adapter is the contract for any chat-completion vendor. It is a plain
// request/response call with no session state; callers construct one
// adapter and inject it where needed.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}
