package conversation

import (
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	Id    string `json:"conversation_id"`
	Turns []Turn `json:"turns"`
}
