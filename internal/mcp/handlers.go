package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bitnet-rag/internal/query"
)

// makeQueryHandler creates the query_documents tool handler.
// An empty store is reported in the output rather than as a tool error.
func makeQueryHandler(querier Querier) func(
	context.Context, *mcp.CallToolRequest, QueryDocumentsInput,
) (*mcp.CallToolResult, QueryDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryDocumentsInput) (
		*mcp.CallToolResult, QueryDocumentsOutput, error,
	) {
		answer, err := querier.Ask(ctx, input.Query)
		if errors.Is(err, query.ErrNoRelevantDocument) {
			return nil, QueryDocumentsOutput{
				Found:   false,
				Query:   input.Query,
				Message: "No relevant documents found. Upload documents first.",
			}, nil
		}
		if err != nil {
			return nil, QueryDocumentsOutput{}, fmt.Errorf("query failed: %w", err)
		}

		var response any
		if len(answer.Response) > 0 {
			if err := json.Unmarshal(answer.Response, &response); err != nil {
				return nil, QueryDocumentsOutput{}, fmt.Errorf("decode inference response: %w", err)
			}
		}

		return nil, QueryDocumentsOutput{
			Found:    true,
			Query:    answer.Query,
			Context:  answer.Context,
			Source:   answer.Source,
			Score:    answer.Score,
			Response: response,
		}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(lister DocumentLister) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		ids, err := lister.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		return nil, ListDocumentsOutput{Documents: ids, Count: len(ids)}, nil
	}
}
