package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/generator"
	"github.com/w-h-a/cervello/internal/service/conversation"
	"github.com/w-h-a/cervello/internal/service/record"
	"github.com/w-h-a/cervello/internal/service/ticket"
	"github.com/w-h-a/cervello/storer"
	"github.com/w-h-a/cervello/ticketer"
	toolhandler "github.com/w-h-a/cervello/tool_handler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/w-h-a/cervello/internal/service/answer"

// Records is the part of the record service used for retrieval and
// write-back. Write-back always inserts so it never rewrites stored
// knowledge.
type Records interface {
	Search(ctx context.Context, text string, limit int) ([]storer.Record, error)
	Store(ctx context.Context, text string, metadata map[string]any, opts ...record.StoreOption) (string, error)
}

type Service struct {
	records       Records
	generator     generator.Generator
	conversations *conversation.Service
	tickets       *ticket.Service
	catalog       *ToolCatalog
	options       Options
	tracer        trace.Tracer
}

func (s *Service) Ask(ctx context.Context, prompt string, opts ...AskOption) (Answer, error) {
	ctx, span := s.tracer.Start(ctx, "answer.Ask")
	defer span.End()

	start := time.Now()

	options := NewAskOptions(opts...)

	prompt = strings.TrimSpace(prompt)
	if len(prompt) == 0 {
		return Answer{}, fail(span, ErrEmptyPrompt)
	}

	conversationId := strings.TrimSpace(options.ConversationId)
	if len(conversationId) == 0 {
		conversationId = uuid.New().String()
	}

	span.SetAttributes(attribute.String("conversation.id", conversationId))

	if handled, ans, err := s.handleCommand(ctx, conversationId, prompt); handled {
		if err != nil {
			return Answer{}, fail(span, err)
		}
		ans.Duration = time.Since(start)
		return ans, nil
	}

	if s.generator == nil {
		return Answer{}, fail(span, ErrNoGenerator)
	}

	var history []conversation.Turn
	if options.IncludeHistory && len(strings.TrimSpace(options.ConversationId)) > 0 {
		history = s.conversations.History(ctx, conversationId, s.options.HistoryLimit)
	}

	limit := options.SearchLimit
	if limit < 1 {
		limit = s.options.SearchLimit
	}

	results, err := s.records.Search(ctx, prompt, limit)
	if err != nil {
		return Answer{}, fail(span, err)
	}

	snippets := make([]string, 0, len(results))
	for _, rec := range results {
		snippets = append(snippets, rec.Content)
	}

	ans := Answer{
		ConversationId:   conversationId,
		RetrievedContext: snippets[:min(len(snippets), maxContextSnippets)],
	}

	response, err := s.generate(ctx, s.buildPrompt(prompt, history, snippets), options.FunctionCalling, &ans)
	if err != nil {
		return Answer{}, fail(span, fmt.Errorf("generate: %w", err))
	}

	ans.Response = response

	s.conversations.AddTurn(ctx, conversationId, conversation.RoleUser, prompt)
	if call := ans.FunctionCall; call != nil {
		s.conversations.AddTurn(ctx, conversationId, conversation.RoleTool, fmt.Sprintf("%s => %s", call.Function, call.Result))
	}
	s.conversations.AddTurn(ctx, conversationId, conversation.RoleAssistant, response)

	if s.options.WriteBack {
		s.writeBack(ctx, conversationId, prompt, response)
	}

	if reason, low := s.lowConfidence(results); low {
		ans.TicketId = s.openTicket(ctx, conversationId, options.UserId, reason)
	}

	ans.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("answer.retrieved", len(results)),
		attribute.Bool("answer.ticket", len(ans.TicketId) > 0),
		attribute.Bool("answer.function_call", ans.FunctionCall != nil),
	)

	return ans, nil
}

func (s *Service) Tools() []toolhandler.ToolSpec {
	return s.catalog.ListSpecs()
}

func (s *Service) InvokeTool(ctx context.Context, name string, args map[string]any) (toolhandler.ToolResponse, error) {
	th, _, ok := s.catalog.Get(name)
	if !ok {
		return toolhandler.ToolResponse{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]any{}
	}

	return th.Invoke(ctx, toolhandler.ToolRequest{Arguments: args})
}

func (s *Service) handleCommand(ctx context.Context, conversationId string, input string) (bool, Answer, error) {
	lower := strings.ToLower(input)

	if !strings.HasPrefix(lower, "tool:") {
		return false, Answer{}, nil
	}

	payload := strings.TrimSpace(input[len("tool:"):])
	if len(payload) == 0 {
		return true, Answer{}, fmt.Errorf("%w: tool name is missing", ErrUnknownTool)
	}

	name, args := toolhandler.SplitCommand(payload)

	th, spec, ok := s.catalog.Get(name)
	if !ok {
		return true, Answer{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	s.conversations.AddTurn(ctx, conversationId, conversation.RoleUser, input)

	result, err := th.Invoke(ctx, toolhandler.ToolRequest{
		ConversationId: conversationId,
		Arguments:      toolhandler.ParseArguments(args),
	})
	if err != nil {
		s.conversations.AddTurn(ctx, conversationId, conversation.RoleTool, fmt.Sprintf("tool error: %v", err))
		return true, Answer{}, err
	}

	content := strings.TrimSpace(result.Content)

	s.conversations.AddTurn(ctx, conversationId, conversation.RoleTool, fmt.Sprintf("%s => %s", spec.Name, content))

	return true, Answer{
		Response:         content,
		ConversationId:   conversationId,
		RetrievedContext: []string{},
		Tool:             spec.Name,
		ToolMetadata:     result.Metadata,
	}, nil
}

// generate completes the prompt, offering the tool catalog to the model when
// function calling is requested and the generator supports it.
func (s *Service) generate(ctx context.Context, prompt string, functionCalling bool, ans *Answer) (string, error) {
	caller, ok := s.generator.(generator.ToolCaller)
	specs := s.catalog.ListSpecs()

	if !functionCalling || !ok || len(specs) == 0 {
		return s.generator.Generate(ctx, prompt)
	}

	tools := make([]generator.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, generator.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.InputSchema,
		})
	}

	run := func(ctx context.Context, call generator.ToolCall) (string, error) {
		args := toolhandler.ParseArguments(call.Arguments)

		content := s.runFunction(ctx, call.Name, args)

		ans.FunctionCall = &FunctionCall{
			Function:  call.Name,
			Arguments: args,
			Result:    json.RawMessage(content),
		}

		return content, nil
	}

	return caller.GenerateWithTools(ctx, prompt, tools, run)
}

// runFunction invokes a catalog tool for the model. The returned content is
// always a JSON document; failures are reported to the model rather than
// failing the answer.
func (s *Service) runFunction(ctx context.Context, name string, args map[string]any) string {
	th, _, ok := s.catalog.Get(name)
	if !ok {
		return functionStatus(name, "unknown_function", "")
	}

	result, err := th.Invoke(ctx, toolhandler.ToolRequest{Arguments: args})
	if err != nil {
		slog.WarnContext(ctx, "function call failed", "function", name, "error", err)
		return functionStatus(name, "error", err.Error())
	}

	content := strings.TrimSpace(result.Content)
	if !json.Valid([]byte(content)) {
		bs, _ := json.Marshal(content)
		content = string(bs)
	}

	return content
}

func functionStatus(name string, status string, message string) string {
	payload := map[string]any{"function": name, "status": status}
	if len(message) > 0 {
		payload["message"] = message
	}
	bs, _ := json.Marshal(payload)
	return string(bs)
}

func (s *Service) buildPrompt(input string, history []conversation.Turn, snippets []string) string {
	var sb bytes.Buffer
	sb.WriteString(s.options.SystemPrompt)

	if specs := s.catalog.ListSpecs(); len(specs) > 0 {
		sb.WriteString("\n\nThe user can call these tools directly with `tool:<name> <json arguments>`:\n")
		for _, spec := range specs {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", spec.Name, spec.Description))
		}
	}

	if len(history) > 0 {
		sb.WriteString("\nPrevious conversation:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("[%s]: %s\n", turn.Role, turn.Content))
		}
	}

	if len(snippets) > 0 {
		sb.WriteString("\nRelevant information:\n")
		for i, snippet := range snippets {
			sb.WriteString(fmt.Sprintf("Context %d: %s\n", i+1, snippet))
		}
	}

	sb.WriteString("\nCurrent user message:\n")
	sb.WriteString(input)
	sb.WriteString("\n")

	return sb.String()
}

// writeBack stores the exchange so later questions can retrieve it. Failures
// are logged and do not fail the answer.
func (s *Service) writeBack(ctx context.Context, conversationId string, prompt string, response string) {
	for _, item := range []struct {
		kind string
		text string
	}{
		{kind: "query", text: prompt},
		{kind: "response", text: response},
	} {
		metadata := map[string]any{
			"type":            item.kind,
			"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
			"conversation_id": conversationId,
		}

		if _, err := s.records.Store(ctx, item.text, metadata); err != nil {
			slog.WarnContext(ctx, "failed to write back exchange", "type", item.kind, "conversation_id", conversationId, "error", err)
		}
	}
}

func (s *Service) lowConfidence(results []storer.Record) (string, bool) {
	if len(results) == 0 {
		return "no relevant context retrieved", true
	}

	if best := results[0].Score; best < s.options.LowConfidence {
		return fmt.Sprintf("best similarity %.3f below %.3f", best, s.options.LowConfidence), true
	}

	return "", false
}

func (s *Service) openTicket(ctx context.Context, conversationId string, userId string, reason string) string {
	if s.tickets == nil {
		return ""
	}

	if len(strings.TrimSpace(userId)) == 0 {
		userId = s.options.TicketUser
	}

	turns := s.conversations.History(ctx, conversationId, 0)

	items := make([]ticketer.PromptItem, 0, len(turns))
	for _, turn := range turns {
		items = append(items, ticketer.PromptItem{
			Message:   turn.Content,
			Role:      turn.Role,
			Timestamp: turn.Timestamp,
		})
	}

	t, err := s.tickets.Create(ctx, userId, items, reason, true)
	if err != nil {
		slog.WarnContext(ctx, "failed to open low confidence ticket", "conversation_id", conversationId, "error", err)
		return ""
	}

	return t.TicketId
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// New wires the answer service. tickets may be nil, in which case low
// confidence answers open no ticket. generator may be nil, in which case only
// tool commands can be answered.
func New(
	records Records,
	generator generator.Generator,
	conversations *conversation.Service,
	tickets *ticket.Service,
	toolHandlers []toolhandler.ToolHandler,
	opts ...Option,
) *Service {
	options := NewOptions(opts...)

	catalog := newToolCatalog()

	for _, th := range toolHandlers {
		if th == nil {
			continue
		}
		if err := catalog.Register(th); err != nil {
			slog.WarnContext(options.Context, "skipping tool", "error", err)
			continue
		}
	}

	if options.SearchLimit <= 0 {
		options.SearchLimit = defaultSearchLimit
	}

	if len(strings.TrimSpace(options.SystemPrompt)) == 0 {
		options.SystemPrompt = defaultSystemPrompt
	}

	return &Service{
		records:       records,
		generator:     generator,
		conversations: conversations,
		tickets:       tickets,
		catalog:       catalog,
		options:       options,
		tracer:        otel.Tracer(tracerName),
	}
}
