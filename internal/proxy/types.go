package proxy

// Role values used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation entry sent to the chat endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ChatResponse is the worker's envelope around a chat-completion result.
// Pointers distinguish absent objects from empty ones.
type ChatResponse struct {
	Data *Completion `json:"data"`
}

// Completion is the subset of a chat-completion response the client reads.
type Completion struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message *Message `json:"message"`
}
