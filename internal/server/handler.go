package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grantscope/usaspending-mcp/pkg/filter"
	"github.com/grantscope/usaspending-mcp/pkg/normalize"
	"github.com/grantscope/usaspending-mcp/pkg/query"
	"github.com/grantscope/usaspending-mcp/pkg/upstream"
)

// SearchClient is the upstream capability the handlers need.
type SearchClient interface {
	FetchAll(ctx context.Context, base *query.UpstreamQuery) (*upstream.ResultSet, error)
	AwardDetails(ctx context.Context, awardID string) (map[string]any, error)
}

// SearchResult is the payload returned by search_grants.
type SearchResult struct {
	Awards        []normalize.NormalizedAward `json:"awards"`
	TotalReturned int                         `json:"totalReturned"`
	PagesFetched  int                         `json:"pagesFetched"`
	HasMore       bool                        `json:"hasMore"`
}

// maxDetailIDs bounds one get_award_details call; maxDetailInFlight bounds
// its concurrent upstream requests.
const (
	maxDetailIDs      = 10
	maxDetailInFlight = 5
)

// AwardDetailsResult is the payload returned by get_award_details. Per-ID
// failures are reported alongside the successes rather than failing the
// whole call.
type AwardDetailsResult struct {
	SuccessCount int                       `json:"successCount"`
	ErrorCount   int                       `json:"errorCount"`
	Results      map[string]map[string]any `json:"results"`
	Errors       map[string]string         `json:"errors,omitempty"`
}

func (s *Server) handleSearchGrants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log := s.log.With(zap.String("call_id", uuid.NewString()), zap.String("tool", "search_grants"))

	f, err := filter.Validate(req.GetArguments())
	if err != nil {
		log.Info("rejected arguments", zap.Error(err))
		return errorResult(describe(err)), nil
	}

	rs, err := s.client.FetchAll(ctx, query.Build(f, 1))
	if err != nil {
		var partial *upstream.PartialResultError
		if errors.As(err, &partial) {
			return s.partialResult(log, partial), nil
		}
		log.Warn("search failed", zap.Error(err))
		return errorResult(describe(err)), nil
	}

	awards, err := normalize.All(rs.Records)
	if err != nil {
		log.Error("normalization failed", zap.Error(err))
		return errorResult(describe(err)), nil
	}

	result := &SearchResult{
		Awards:        awards,
		TotalReturned: len(awards),
		PagesFetched:  rs.Pages,
		HasMore:       rs.HasMore,
	}
	log.Info("search completed",
		zap.Int("awards", result.TotalReturned),
		zap.Int("pages", result.PagesFetched),
		zap.Bool("hasMore", result.HasMore))
	return jsonResult(result)
}

// partialResult builds the partial_result descriptor: the failure cause plus
// whatever records normalized cleanly, so the caller can decide whether the
// incomplete answer is useful.
func (s *Server) partialResult(log *zap.Logger, partial *upstream.PartialResultError) *mcp.CallToolResult {
	desc := describe(partial.Err)
	desc.Kind = KindPartialResult
	desc.Message = "search failed partway: " + desc.Message
	desc.Retryable = true

	awards, err := normalize.All(partial.Records)
	if err == nil {
		desc.Partial = &SearchResult{
			Awards:        awards,
			TotalReturned: len(awards),
			PagesFetched:  partial.FailedPage - 1,
			HasMore:       true,
		}
	}
	log.Warn("search returned partial results",
		zap.Int("records", len(partial.Records)),
		zap.Int("failedPage", partial.FailedPage),
		zap.Error(partial.Err))
	return errorResult(desc)
}

func (s *Server) handleAwardDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log := s.log.With(zap.String("call_id", uuid.NewString()), zap.String("tool", "get_award_details"))

	ids, err := awardIDsArg(req.GetArguments())
	if err != nil {
		log.Info("rejected arguments", zap.Error(err))
		return errorResult(describe(err)), nil
	}

	result := &AwardDetailsResult{
		Results: make(map[string]map[string]any, len(ids)),
		Errors:  make(map[string]string),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDetailInFlight)
	for _, id := range ids {
		g.Go(func() error {
			detail, err := s.client.AwardDetails(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[id] = describe(err).Message
				return nil
			}
			result.Results[id] = detail
			return nil
		})
	}
	// Goroutines never return errors; per-ID failures land in result.Errors.
	_ = g.Wait()

	result.SuccessCount = len(result.Results)
	result.ErrorCount = len(result.Errors)
	if result.ErrorCount == 0 {
		result.Errors = nil
	}
	log.Info("award details fetched",
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.ErrorCount))
	return jsonResult(result)
}

func (s *Server) handleListAwardTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(query.AwardTypeTable())
}

// awardIDsArg validates the get_award_details arguments. The schema is one
// required string array, fail closed on anything else.
func awardIDsArg(args map[string]any) ([]string, error) {
	for name := range args {
		if name != "award_ids" {
			return nil, &filter.ValidationError{Field: name, Reason: "unrecognized argument"}
		}
	}
	raw, ok := args["award_ids"]
	if !ok {
		return nil, &filter.ValidationError{Field: "award_ids", Reason: "required"}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &filter.ValidationError{Field: "award_ids", Reason: "must be an array of strings"}
	}
	if len(list) == 0 {
		return nil, &filter.ValidationError{Field: "award_ids", Reason: "must not be empty"}
	}
	if len(list) > maxDetailIDs {
		return nil, &filter.ValidationError{Field: "award_ids", Reason: "at most 10 IDs per call"}
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		id, ok := item.(string)
		if !ok || id == "" {
			return nil, &filter.ValidationError{Field: "award_ids", Reason: "must contain non-empty strings"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(&ErrorDescriptor{
			Kind:    KindInternalError,
			Message: "failed to encode result",
		}), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
