package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/cervello/generator"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := g.client.CreateChatCompletion(ctx, g.request(g.messages(prompt)))
	if err != nil {
		return "", err
	}

	return content(rsp)
}

func (g *openAIGenerator) GenerateWithTools(ctx context.Context, prompt string, tools []generator.Tool, run generator.ToolRunner) (string, error) {
	messages := g.messages(prompt)

	req := g.request(messages)
	for _, tool := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	message := rsp.Choices[0].Message
	if len(message.ToolCalls) == 0 {
		return content(rsp)
	}

	call := message.ToolCalls[0]

	result, err := run(ctx, generator.ToolCall{
		Id:        call.ID,
		Name:      call.Function.Name,
		Arguments: call.Function.Arguments,
	})
	if err != nil {
		return "", err
	}

	messages = append(messages,
		openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{call},
		},
		openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			ToolCallID: call.ID,
		},
	)

	rsp, err = g.client.CreateChatCompletion(ctx, g.request(messages))
	if err != nil {
		return "", err
	}

	return content(rsp)
}

func (g *openAIGenerator) messages(prompt string) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{}

	if len(g.options.SystemPrompt) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.options.SystemPrompt,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (g *openAIGenerator) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       g.options.Model,
		Messages:    messages,
		MaxTokens:   g.options.MaxTokens,
		Temperature: g.options.Temperature,
	}
}

func content(rsp openai.ChatCompletionResponse) (string, error) {
	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

func NewGenerator(opts ...generator.Option) generator.ToolCaller {
	options := generator.NewOptions(opts...)

	if len(options.ApiKey) == 0 {
		panic("missing api key for openai generator")
	}

	if len(options.Model) == 0 {
		options.Model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(options.ApiKey)
	if len(options.Location) > 0 {
		config.BaseURL = options.Location
	}

	return &openAIGenerator{
		options: options,
		client:  openai.NewClientWithConfig(config),
	}
}
