package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/w-h-a/cervello/generator"
)

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := g.client.Messages.New(ctx, g.request(prompt))
	if err != nil {
		return "", err
	}

	return text(rsp)
}

func (g *anthropicGenerator) GenerateWithTools(ctx context.Context, prompt string, tools []generator.Tool, run generator.ToolRunner) (string, error) {
	req := g.request(prompt)

	for _, tool := range tools {
		properties, required := schema(tool.Parameters)
		req.Tools = append(req.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	var use *anthropic.ToolUseBlock
	for _, content := range rsp.Content {
		if block, ok := content.AsAny().(anthropic.ToolUseBlock); ok {
			use = &block
			break
		}
	}

	if use == nil {
		return text(rsp)
	}

	result, err := run(ctx, generator.ToolCall{
		Id:        use.ID,
		Name:      use.Name,
		Arguments: string(use.Input),
	})
	if err != nil {
		return "", err
	}

	req.Messages = append(req.Messages,
		rsp.ToParam(),
		anthropic.NewUserMessage(anthropic.NewToolResultBlock(use.ID, result, false)),
	)

	rsp, err = g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	return text(rsp)
}

func (g *anthropicGenerator) request(prompt string) anthropic.MessageNewParams {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   int64(g.options.MaxTokens),
		Temperature: anthropic.Float(float64(g.options.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if len(g.options.SystemPrompt) > 0 {
		req.System = []anthropic.TextBlockParam{
			{Text: g.options.SystemPrompt},
		}
	}

	return req
}

func text(rsp *anthropic.Message) (string, error) {
	var b strings.Builder
	for _, content := range rsp.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(block.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

// schema splits a JSON schema object into the properties and required list
// the messages API expects.
func schema(parameters map[string]any) (any, []string) {
	properties := parameters["properties"]
	if properties == nil {
		properties = map[string]any{}
	}

	var required []string
	switch r := parameters["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, v := range r {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}

	return properties, required
}

func NewGenerator(opts ...generator.Option) generator.ToolCaller {
	options := generator.NewOptions(opts...)

	if len(options.ApiKey) == 0 {
		panic("missing api key for anthropic generator")
	}

	if len(options.Model) == 0 {
		options.Model = "claude-sonnet-4-5"
	}

	g := &anthropicGenerator{
		options: options,
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
	}
	if len(options.Location) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.Location), anthropicopt.WithMaxRetries(0))
	}

	client := anthropic.NewClient(clientOpts...)

	g.client = &client

	return g
}
