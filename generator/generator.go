package generator

import "context"

// Generator completes a single prompt. The system prompt, if any, is part of
// the generator's configuration rather than of each call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Tool describes a function the model may call. Parameters is a JSON schema
// object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is the model's request to run a tool. Arguments is the raw JSON
// the model produced.
type ToolCall struct {
	Id        string
	Name      string
	Arguments string
}

// ToolRunner runs a call and returns the content handed back to the model.
type ToolRunner func(ctx context.Context, call ToolCall) (string, error)

// ToolCaller is implemented by generators that support function calling.
// The model chooses whether to call a tool. When it does, the first call is
// run and the model is asked again with its result.
type ToolCaller interface {
	Generator
	GenerateWithTools(ctx context.Context, prompt string, tools []Tool, run ToolRunner) (string, error)
}
