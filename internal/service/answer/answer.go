package answer

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrEmptyPrompt = errors.New("prompt is required")
	ErrUnknownTool = errors.New("unknown tool")
	ErrNoGenerator = errors.New("no generator configured")
)

type Answer struct {
	Response         string         `json:"response"`
	ConversationId   string         `json:"conversation_id"`
	RetrievedContext []string       `json:"retrieved_context"`
	TicketId         string         `json:"ticket_id,omitempty"`
	Tool             string         `json:"tool,omitempty"`
	ToolMetadata     map[string]any `json:"tool_metadata,omitempty"`
	FunctionCall     *FunctionCall  `json:"function_call,omitempty"`
	Duration         time.Duration  `json:"-"`
}

// FunctionCall records a tool the model chose to run while answering.
type FunctionCall struct {
	Function  string          `json:"function"`
	Arguments map[string]any  `json:"arguments"`
	Result    json.RawMessage `json:"result"`
}
