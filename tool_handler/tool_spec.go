package toolhandler

type ToolSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema map[string]any   `json:"input_schema"`
	Examples    []map[string]any `json:"examples,omitempty"`
}

type ToolRequest struct {
	ConversationId string         `json:"conversation_id,omitempty"`
	Arguments      map[string]any `json:"arguments"`
}

type ToolResponse struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
