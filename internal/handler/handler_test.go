package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/cervello/embedder/hashing"
	"github.com/w-h-a/cervello/generator"
	"github.com/w-h-a/cervello/internal/service/answer"
	"github.com/w-h-a/cervello/internal/service/conversation"
	"github.com/w-h-a/cervello/internal/service/record"
	"github.com/w-h-a/cervello/internal/service/ticket"
	"github.com/w-h-a/cervello/storer"
	"github.com/w-h-a/cervello/storer/memory"
	ticketmemory "github.com/w-h-a/cervello/ticketer/memory"
	recordtools "github.com/w-h-a/cervello/tool_handler/record"
)

type mockGenerator struct{}

func (mockGenerator) Generate(context.Context, string) (string, error) {
	return "generated answer", nil
}

type toolCallingGenerator struct {
	mockGenerator
}

func (toolCallingGenerator) GenerateWithTools(ctx context.Context, _ string, _ []generator.Tool, run generator.ToolRunner) (string, error) {
	if _, err := run(ctx, generator.ToolCall{Id: "call_1", Name: "search_knowledge_base", Arguments: `{"query":"refunds"}`}); err != nil {
		return "", err
	}
	return "answered with tools", nil
}

type failingStorer struct{}

func (failingStorer) Search(context.Context, []float32, int) ([]storer.Record, error) {
	return nil, errors.New("connection refused")
}

func (failingStorer) Upsert(context.Context, ...storer.Record) error {
	return errors.New("connection refused")
}

func (failingStorer) Delete(context.Context, ...string) error {
	return errors.New("connection refused")
}

func (failingStorer) Count(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func newRouter(t *testing.T, st storer.Storer) http.Handler {
	t.Helper()

	return newRouterWithGenerator(t, st, mockGenerator{})
}

func newRouterWithGenerator(t *testing.T, st storer.Storer, gen generator.Generator) http.Handler {
	t.Helper()

	records := record.New(
		record.WithStorer(st),
		record.WithEmbedder(hashing.NewEmbedder()),
	)
	conversations := conversation.New(0)
	tickets := ticket.New(ticketmemory.NewTicketer())

	answers := answer.New(
		records,
		gen,
		conversations,
		tickets,
		recordtools.NewToolHandlers(recordtools.WithRecords(records)),
		answer.WithWriteBack(false),
	)

	h := New(records, answers, conversations, tickets,
		WithCollection("test_collection"),
		WithVectorSize(384),
		WithVersion("1.0.0"),
	)

	return h.Router()
}

func do(t *testing.T, router http.Handler, method string, target string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bs)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return rec.Code, out
}

func TestHandler_InfoAndStatus(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.0.0", body["version"])

	code, body = do(t, router, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test_collection", body["collection"])
	assert.Equal(t, 0.0, body["vectors_count"])
	assert.Equal(t, 384.0, body["vector_size"])
	assert.InDelta(t, 0.9, body["threshold"], 1e-6)
}

func TestHandler_RecordLifecycle(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodPost, "/records/upsert", map[string]any{"text": "The sky is blue"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["created"])
	id := body["id"]

	code, body = do(t, router, http.MethodPost, "/records/upsert", map[string]any{"text": "The sky is blue", "metadata": map[string]any{"v": 2}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["updated"])
	assert.Equal(t, id, body["id"])

	code, body = do(t, router, http.MethodPost, "/records", map[string]any{
		"data": []map[string]any{{"text": "Bananas are yellow", "id": "banana"}},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"banana"}, body["ids"])

	code, body = do(t, router, http.MethodPost, "/records/search", map[string]any{"query": "Bananas are yellow", "limit": 1})
	require.Equal(t, http.StatusOK, code)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "banana", results[0].(map[string]any)["id"])
	assert.Equal(t, "Bananas are yellow", results[0].(map[string]any)["text"])

	code, body = do(t, router, http.MethodDelete, "/records?text=quantum+chromodynamics+lecture+notes", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["outcome"].(map[string]any)["below_threshold"])

	code, body = do(t, router, http.MethodDelete, "/records?text=The+sky+is+blue", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["outcome"].(map[string]any)["deleted"])

	code, _ = do(t, router, http.MethodDelete, "/records?id=banana", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, router, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["vectors_count"])
}

func TestHandler_RecordErrors(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{name: "empty text", method: http.MethodPost, target: "/records/upsert", body: map[string]any{"text": "  "}, status: http.StatusBadRequest},
		{name: "missing body", method: http.MethodPost, target: "/records/upsert", status: http.StatusBadRequest},
		{name: "limit too large", method: http.MethodPost, target: "/records/search", body: map[string]any{"query": "x", "limit": 101}, status: http.StatusBadRequest},
		{name: "limit zero", method: http.MethodPost, target: "/records/search", body: map[string]any{"query": "x", "limit": 0}, status: http.StatusBadRequest},
		{name: "empty bulk", method: http.MethodPost, target: "/records", body: map[string]any{"data": []any{}}, status: http.StatusBadRequest},
		{name: "delete without params", method: http.MethodDelete, target: "/records", status: http.StatusBadRequest},
		{name: "delete bad force", method: http.MethodDelete, target: "/records?text=x&force=maybe", status: http.StatusBadRequest},
		{name: "delete empty index", method: http.MethodDelete, target: "/records?text=anything", status: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(t, router, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, code)
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestHandler_StoreUnavailable(t *testing.T) {
	router := newRouter(t, failingStorer{})

	code, body := do(t, router, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])

	code, _ = do(t, router, http.MethodPost, "/records/upsert", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHandler_QueryAndConversation(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodPost, "/query", map[string]any{"prompt": "What is the refund policy?", "user_id": "alice"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "generated answer", body["response"])
	assert.Contains(t, body, "processing_time_seconds")
	assert.NotEmpty(t, body["ticket_id"])
	conversationId := body["conversation_id"].(string)

	code, body = do(t, router, http.MethodGet, "/conversations/"+conversationId, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["turns"], 2)

	code, body = do(t, router, http.MethodGet, "/users/alice/tickets", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tickets"], 1)

	code, _ = do(t, router, http.MethodDelete, "/conversations/"+conversationId, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, router, http.MethodGet, "/conversations/"+conversationId, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, router, http.MethodPost, "/query", map[string]any{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_FunctionCalling(t *testing.T) {
	router := newRouterWithGenerator(t, memory.NewStorer(), toolCallingGenerator{})

	code, body := do(t, router, http.MethodPost, "/query", map[string]any{"prompt": "How do refunds work?"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "answered with tools", body["response"])
	call := body["function_call"].(map[string]any)
	assert.Equal(t, "search_knowledge_base", call["function"])
	assert.Contains(t, call["result"], "results")

	code, body = do(t, router, http.MethodPost, "/query", map[string]any{"prompt": "How do refunds work?", "use_function_calling": false})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "generated answer", body["response"])
	assert.NotContains(t, body, "function_call")

	code, body = do(t, router, http.MethodPost, "/llm-query", map[string]any{"prompt": "How do refunds work?", "use_function_calling": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "generated answer", body["response"])
	assert.NotContains(t, body, "function_call")
}

func TestHandler_QueryWithoutGenerator(t *testing.T) {
	router := newRouterWithGenerator(t, memory.NewStorer(), nil)

	code, body := do(t, router, http.MethodPost, "/query", map[string]any{"prompt": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["detail"], "no generator configured")

	code, body = do(t, router, http.MethodPost, "/query", map[string]any{"prompt": `tool:store_information {"text":"Bananas are yellow"}`})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "store_information", body["tool"])
}

func TestHandler_UpdateInformationTool(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodPost, "/records", map[string]any{
		"data": []map[string]any{{"text": "The office opens at nine", "metadata": map[string]any{"source": "handbook"}}},
	})
	require.Equal(t, http.StatusOK, code)
	id := body["ids"].([]any)[0]

	code, body = do(t, router, http.MethodPost, "/tools", map[string]any{
		"name":      "update_information",
		"arguments": map[string]any{"search_text": "office hours", "new_text": "Lunch is served at noon"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["metadata"].(map[string]any)["id"])

	code, body = do(t, router, http.MethodPost, "/records/search", map[string]any{"query": "Lunch is served at noon", "limit": 1})
	require.Equal(t, http.StatusOK, code)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].(map[string]any)["id"])
	assert.Equal(t, "Lunch is served at noon", results[0].(map[string]any)["text"])
}

func TestHandler_Tickets(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodPost, "/tickets", map[string]any{
		"userId":        "bob",
		"promptHistory": []map[string]any{{"message": "help", "role": "user"}},
	})
	require.Equal(t, http.StatusCreated, code)
	ticketId := body["ticketId"].(string)

	code, body = do(t, router, http.MethodGet, "/tickets/"+ticketId, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bob", body["userId"])
	assert.Equal(t, "open", body["status"])

	code, body = do(t, router, http.MethodGet, "/tickets", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tickets"], 1)

	code, _ = do(t, router, http.MethodGet, "/tickets/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, router, http.MethodPost, "/tickets", map[string]any{"userId": " "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_Tools(t *testing.T) {
	router := newRouter(t, memory.NewStorer())

	code, body := do(t, router, http.MethodPost, "/tools", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tools"], 4)

	code, body = do(t, router, http.MethodPost, "/tools", map[string]any{
		"name":      "store_information",
		"arguments": map[string]any{"text": "Water boils at 100C"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "store_information", body["tool"])
	assert.NotEmpty(t, body["metadata"].(map[string]any)["id"])

	code, _ = do(t, router, http.MethodPost, "/tools", map[string]any{"name": "search_knowledge_base", "arguments": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, router, http.MethodPost, "/tools", map[string]any{"name": "launch_rockets"})
	assert.Equal(t, http.StatusNotFound, code)
}
