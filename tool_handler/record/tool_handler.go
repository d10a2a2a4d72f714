package record

import (
	"context"
	"encoding/json"
	"fmt"

	recordsvc "github.com/w-h-a/cervello/internal/service/record"
	toolhandler "github.com/w-h-a/cervello/tool_handler"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 100
)

type searchToolHandler struct {
	records Records
	limit   int
}

func (th *searchToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "search_knowledge_base",
		Description: "Search the knowledge base for records similar to a query.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Text to search for.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results.",
					"minimum":     1,
					"maximum":     maxSearchLimit,
				},
			},
			"required": []any{"query"},
		},
		Examples: []map[string]any{
			{"query": "What colour is the sky?", "limit": 3},
		},
	}
}

func (th *searchToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	query, err := toolhandler.StringArg(req.Arguments, "query", "input")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	limit, err := toolhandler.IntArg(req.Arguments, "limit", th.limit)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	if limit < 1 || limit > maxSearchLimit {
		return toolhandler.ToolResponse{}, fmt.Errorf("%w: argument 'limit' must be between 1 and %d", toolhandler.ErrInvalidArgument, maxSearchLimit)
	}

	records, err := th.records.Search(ctx, query, limit)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	results := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		results = append(results, map[string]any{
			"id":    rec.Id,
			"text":  rec.Content,
			"score": rec.Score,
		})
	}

	return respond(map[string]any{"results": results}, map[string]any{"results": len(results)})
}

type storeToolHandler struct {
	records Records
}

func (th *storeToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "store_information",
		Description: "Store a new piece of information in the knowledge base without checking for duplicates.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Information to store.",
				},
				"metadata": map[string]any{
					"type":        "object",
					"description": "Optional metadata kept with the record.",
				},
			},
			"required": []any{"text"},
		},
	}
}

func (th *storeToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	text, err := toolhandler.StringArg(req.Arguments, "text", "input")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	metadata, err := toolhandler.MapArg(req.Arguments, "metadata")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	id, err := th.records.Store(ctx, text, metadata)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	return respond(map[string]any{"id": id, "status": "stored"}, map[string]any{"id": id})
}

type updateToolHandler struct {
	records Records
}

func (th *updateToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "update_information",
		Description: "Find the record closest to search_text and replace its text and metadata.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"search_text": map[string]any{
					"type":        "string",
					"description": "Text used to find the record to update.",
				},
				"new_text": map[string]any{
					"type":        "string",
					"description": "Replacement text for the record.",
				},
				"metadata": map[string]any{
					"type":        "object",
					"description": "Metadata that replaces the existing record's metadata.",
				},
			},
			"required": []any{"search_text", "new_text"},
		},
		Examples: []map[string]any{
			{"search_text": "office opening hours", "new_text": "The office opens at 8am."},
		},
	}
}

func (th *updateToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	searchText, err := toolhandler.StringArg(req.Arguments, "search_text")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	newText, err := toolhandler.StringArg(req.Arguments, "new_text")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	metadata, err := toolhandler.MapArg(req.Arguments, "metadata")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	outcome, err := th.records.Replace(ctx, searchText, newText, metadata)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	return respond(map[string]any{"id": outcome.Id, "status": "updated", "outcome": outcome}, map[string]any{"id": outcome.Id, "status": "updated"})
}

type deleteToolHandler struct {
	records Records
}

func (th *deleteToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        "delete_information",
		Description: "Delete the record most similar to the given text when it is close enough, or unconditionally with force.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Text describing the record to delete.",
				},
				"force": map[string]any{
					"type":        "boolean",
					"description": "Delete the nearest record even below the similarity threshold.",
				},
			},
			"required": []any{"text"},
		},
	}
}

func (th *deleteToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	text, err := toolhandler.StringArg(req.Arguments, "text", "input")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	force, err := toolhandler.BoolArg(req.Arguments, "force")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	outcome, err := th.records.Delete(ctx, text, recordsvc.WithForce(force))
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	status := "deleted"
	if outcome.BelowThreshold {
		status = "below_threshold"
	}

	return respond(map[string]any{"status": status, "outcome": outcome}, map[string]any{"id": outcome.Id, "status": status})
}

func respond(body map[string]any, metadata map[string]any) (toolhandler.ToolResponse, error) {
	content, err := json.Marshal(body)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}
	return toolhandler.ToolResponse{Content: string(content), Metadata: metadata}, nil
}

func records(opts ...toolhandler.Option) (Records, int) {
	options := toolhandler.NewOptions(opts...)

	r, ok := RecordsFrom(options.Context)
	if !ok || r == nil {
		panic("missing records for record tool handler")
	}

	limit, ok := DefaultSearchLimitFrom(options.Context)
	if !ok || limit < 1 {
		limit = defaultSearchLimit
	}

	return r, limit
}

func NewSearchToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	r, limit := records(opts...)
	return &searchToolHandler{records: r, limit: limit}
}

func NewStoreToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	r, _ := records(opts...)
	return &storeToolHandler{records: r}
}

func NewUpdateToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	r, _ := records(opts...)
	return &updateToolHandler{records: r}
}

func NewDeleteToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	r, _ := records(opts...)
	return &deleteToolHandler{records: r}
}

// NewToolHandlers returns every record tool in a stable order.
func NewToolHandlers(opts ...toolhandler.Option) []toolhandler.ToolHandler {
	return []toolhandler.ToolHandler{
		NewSearchToolHandler(opts...),
		NewStoreToolHandler(opts...),
		NewUpdateToolHandler(opts...),
		NewDeleteToolHandler(opts...),
	}
}
