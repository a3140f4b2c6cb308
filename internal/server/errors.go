package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grantscope/usaspending-mcp/pkg/filter"
	"github.com/grantscope/usaspending-mcp/pkg/normalize"
	"github.com/grantscope/usaspending-mcp/pkg/upstream"
)

// Error descriptor kinds returned to MCP clients.
const (
	KindValidationError        = "validation_error"
	KindUpstreamClientError    = "upstream_client_error"
	KindUpstreamTransientError = "upstream_transient_error"
	KindSchemaMismatch         = "schema_mismatch"
	KindPartialResult          = "partial_result"
	KindInternalError          = "internal_error"
)

// ErrorDescriptor is the client-facing error shape. Internal error detail is
// summarized, never exposed verbatim; Retryable tells the calling agent
// whether repeating the whole call might succeed.
type ErrorDescriptor struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`

	// Partial carries the records fetched before a partial failure so the
	// caller can decide whether an incomplete answer is useful.
	Partial *SearchResult `json:"partial,omitempty"`
}

// describe translates an internal error into a client-facing descriptor.
// PartialResultError is handled separately by the search handler because it
// needs the normalizer.
func describe(err error) *ErrorDescriptor {
	var validation *filter.ValidationError
	if errors.As(err, &validation) {
		return &ErrorDescriptor{
			Kind:      KindValidationError,
			Message:   validation.Error(),
			Retryable: false,
		}
	}

	var clientErr *upstream.ClientError
	if errors.As(err, &clientErr) {
		return &ErrorDescriptor{
			Kind:      KindUpstreamClientError,
			Message:   fmt.Sprintf("search failed: upstream rejected the query (status %d)", clientErr.Status),
			Retryable: false,
		}
	}

	var transient *upstream.TransientError
	if errors.As(err, &transient) {
		return &ErrorDescriptor{
			Kind:      KindUpstreamTransientError,
			Message:   "search failed: upstream request failed after retries",
			Retryable: true,
		}
	}

	var mismatch *normalize.SchemaMismatchError
	if errors.As(err, &mismatch) {
		return &ErrorDescriptor{
			Kind:      KindSchemaMismatch,
			Message:   fmt.Sprintf("search failed: upstream response schema changed (%s)", mismatch.Error()),
			Retryable: false,
		}
	}

	return &ErrorDescriptor{
		Kind:      KindInternalError,
		Message:   "search failed",
		Retryable: false,
	}
}

// errorResult serializes a descriptor as an MCP tool error result.
func errorResult(desc *ErrorDescriptor) *mcp.CallToolResult {
	data, err := json.Marshal(desc)
	if err != nil {
		return mcp.NewToolResultError(desc.Message)
	}
	return mcp.NewToolResultError(string(data))
}
