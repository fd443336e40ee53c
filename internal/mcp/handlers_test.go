package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bitnet-rag/internal/query"
)

type mockQuerier struct {
	answer *query.Answer
	err    error
}

func (m *mockQuerier) Ask(ctx context.Context, text string) (*query.Answer, error) {
	return m.answer, m.err
}

type mockLister struct {
	ids []string
	err error
}

func (m *mockLister) ListDocuments(ctx context.Context) ([]string, error) {
	return m.ids, m.err
}

func TestQueryHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with decoded response", func(t *testing.T) {
		handler := makeQueryHandler(&mockQuerier{answer: &query.Answer{
			Query:    "tell me about mammals",
			Context:  "Cats are mammals.",
			Source:   "d1.txt",
			Score:    0.82,
			Response: json.RawMessage(`{"answer":"cats"}`),
		}})

		_, output, err := handler(ctx, nil, QueryDocumentsInput{Query: "tell me about mammals"})

		require.NoError(t, err)
		assert.True(t, output.Found)
		assert.Equal(t, "Cats are mammals.", output.Context)
		assert.Equal(t, "d1.txt", output.Source)
		assert.Equal(t, 0.82, output.Score)
		assert.Equal(t, map[string]any{"answer": "cats"}, output.Response)
	})

	t.Run("empty store is not a tool error", func(t *testing.T) {
		handler := makeQueryHandler(&mockQuerier{err: query.ErrNoRelevantDocument})

		_, output, err := handler(ctx, nil, QueryDocumentsInput{Query: "anything"})

		require.NoError(t, err)
		assert.False(t, output.Found)
		assert.NotEmpty(t, output.Message)
	})

	t.Run("propagates other failures", func(t *testing.T) {
		handler := makeQueryHandler(&mockQuerier{err: query.ErrMissingQuery})

		_, _, err := handler(ctx, nil, QueryDocumentsInput{})

		require.Error(t, err)
		assert.ErrorIs(t, err, query.ErrMissingQuery)
	})
}

func TestListHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("lists ids", func(t *testing.T) {
		handler := makeListHandler(&mockLister{ids: []string{"a.txt", "b.txt"}})

		_, output, err := handler(ctx, nil, ListDocumentsInput{})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, []string{"a.txt", "b.txt"}, output.Documents)
	})

	t.Run("empty store yields empty list", func(t *testing.T) {
		handler := makeListHandler(&mockLister{})

		_, output, err := handler(ctx, nil, ListDocumentsInput{})

		require.NoError(t, err)
		assert.NotNil(t, output.Documents)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("returns error on store failure", func(t *testing.T) {
		handler := makeListHandler(&mockLister{err: errors.New("store down")})

		_, _, err := handler(ctx, nil, ListDocumentsInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})
}

func TestNewServer(t *testing.T) {
	server := NewServer(&Config{Querier: &mockQuerier{}, Lister: &mockLister{}})
	require.NotNil(t, server)
	assert.NotNil(t, server.MCPServer())

	assert.NotNil(t, server.HTTPHandler(nil))
	assert.NotNil(t, server.HTTPHandler(&HTTPHandlerOptions{Stateless: true}))
}

func TestHTTPHandler_Stateless(t *testing.T) {
	server := NewServer(&Config{Querier: &mockQuerier{}, Lister: &mockLister{}})
	listTools := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/mcp",
			strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("stateful requires a session", func(t *testing.T) {
		rec := listTools(server.HTTPHandler(nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("stateless answers without initialize", func(t *testing.T) {
		rec := listTools(server.HTTPHandler(&HTTPHandlerOptions{Stateless: true}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "query_documents")
		assert.Contains(t, rec.Body.String(), "list_documents")
	})
}
