// Package upstream implements the HTTP client for the USAspending.gov API:
// one POST per result page, a fixed injected retry policy for transient
// failures, and sequential pagination with explicit termination rules.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/grantscope/usaspending-mcp/pkg/query"
)

// RawAwardRecord is one upstream award object. The schema is owned by
// USAspending.gov; it is opaque here and projected by the normalizer.
type RawAwardRecord map[string]any

// Page is one fetched result page.
type Page struct {
	Records []RawAwardRecord
	HasNext bool
}

// ResultSet is the concatenation of all fetched pages.
type ResultSet struct {
	Records []RawAwardRecord

	// HasMore is true when pagination stopped before the upstream ran out
	// of results (the max-records cap was hit).
	HasMore bool

	// Pages is the number of pages fetched.
	Pages int
}

// Config holds the upstream endpoint settings. It is passed in explicitly at
// construction; there is no process-wide state.
type Config struct {
	// BaseURL is the API root, e.g. https://api.usaspending.gov/api/v2.
	BaseURL string

	// Timeout applies per HTTP request, not per pagination loop.
	Timeout time.Duration

	UserAgent string

	// MaxRecords caps the total records fetched across pages, protecting
	// against unbounded traversal of overly broad queries.
	MaxRecords int
}

// RetryPolicy bounds retries of transient failures. 4xx responses are never
// retried regardless of policy.
type RetryPolicy struct {
	MaxAttempts uint
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 attempts with short
// exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Client performs search and detail requests against the USAspending API.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	cfg    Config
	policy RetryPolicy
	http   *http.Client
	log    *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(cfg Config, policy RetryPolicy, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 500
	}
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Client{
		cfg:    cfg,
		policy: policy,
		http:   &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// searchResponse is the subset of the upstream response the client reads.
type searchResponse struct {
	Results      []RawAwardRecord `json:"results"`
	PageMetadata struct {
		Page    int  `json:"page"`
		HasNext bool `json:"hasNext"`
	} `json:"page_metadata"`
}

// FetchPage fetches a single result page, retrying transient failures per
// the configured policy. 4xx responses return *ClientError immediately.
func (c *Client) FetchPage(ctx context.Context, q *query.UpstreamQuery) (*Page, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	var page *Page
	err = retry.Do(
		func() error {
			var attemptErr error
			page, attemptErr = c.doSearch(ctx, body)
			return attemptErr
		},
		retry.Attempts(c.policy.MaxAttempts),
		retry.Delay(c.policy.Delay),
		retry.MaxDelay(c.policy.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying upstream page fetch",
				zap.Uint("attempt", n+1),
				zap.Int("page", q.Page),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) doSearch(ctx context.Context, body []byte) (*Page, error) {
	endpoint := c.endpoint(query.SearchPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, &TransientError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", readDetail(resp.Body)),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &ClientError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// A truncated or malformed body usually means the response was cut
		// short in transit, so it is retried like a network failure.
		return nil, &TransientError{Err: fmt.Errorf("decode search response: %w", err)}
	}

	return &Page{
		Records: decoded.Results,
		HasNext: decoded.PageMetadata.HasNext,
	}, nil
}

// FetchAll walks result pages sequentially starting from base.Page,
// concatenating records until the upstream signals the end (short page or
// hasNext=false) or the max-records cap is reached. A failure after at least
// one successful page returns *PartialResultError carrying the records
// fetched so far.
func (c *Client) FetchAll(ctx context.Context, base *query.UpstreamQuery) (*ResultSet, error) {
	rs := &ResultSet{}
	page := base.Page
	if page < 1 {
		page = 1
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, c.partial(rs, page, err)
		}

		fetched, err := c.FetchPage(ctx, query.NextPage(base, page))
		if err != nil {
			return nil, c.partial(rs, page, err)
		}

		rs.Records = append(rs.Records, fetched.Records...)
		rs.Pages++

		c.log.Debug("fetched upstream page",
			zap.Int("page", page),
			zap.Int("records", len(fetched.Records)),
			zap.Bool("hasNext", fetched.HasNext))

		if len(rs.Records) >= c.cfg.MaxRecords {
			truncated := len(rs.Records) > c.cfg.MaxRecords
			rs.Records = rs.Records[:c.cfg.MaxRecords]
			rs.HasMore = truncated || fetched.HasNext
			return rs, nil
		}
		if !fetched.HasNext || len(fetched.Records) < base.Limit {
			return rs, nil
		}
		page++
	}
}

// partial wraps err in a PartialResultError when earlier pages succeeded.
func (c *Client) partial(rs *ResultSet, failedPage int, err error) error {
	if rs.Pages == 0 {
		return err
	}
	return &PartialResultError{
		Records:    rs.Records,
		FailedPage: failedPage,
		Err:        err,
	}
}

// AwardDetails fetches the full detail record for one award ID via
// GET awards/{id}/. Transient failures are retried per the policy.
func (c *Client) AwardDetails(ctx context.Context, awardID string) (map[string]any, error) {
	var detail map[string]any
	err := retry.Do(
		func() error {
			var attemptErr error
			detail, attemptErr = c.doAwardDetails(ctx, awardID)
			return attemptErr
		},
		retry.Attempts(c.policy.MaxAttempts),
		retry.Delay(c.policy.Delay),
		retry.MaxDelay(c.policy.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (c *Client) doAwardDetails(ctx context.Context, awardID string) (map[string]any, error) {
	endpoint := c.endpoint("awards/" + url.PathEscape(awardID) + "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, &TransientError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", readDetail(resp.Body)),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &ClientError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var detail map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode award details: %w", err)}
	}
	return detail, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + path
}

// readDetail reads a bounded prefix of an error response body for
// diagnostics. Upstream error payloads are small JSON objects.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
