// Package census fetches demographic denominators from the Census Bureau
// American Community Survey API.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/atlas-cli/internal/resilience"
)

const defaultBaseURL = "https://api.census.gov/data"

// Client fetches ACS values keyed by region GEOID.
type Client interface {
	// Demographics returns one ACS variable for every region at the given
	// geography level.
	Demographics(ctx context.Context, req Request) (map[string]float64, error)
}

// Request names the ACS slice to fetch.
type Request struct {
	Year     int    // vintage, e.g. 2023
	Dataset  string // e.g. "acs/acs5"
	Variable string // e.g. "B01003_001E" (total population)
	Level    string // "state" or "county"
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the API key. Keyless requests work but are throttled to a
// daily quota.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxRetries bounds attempts against transient API failures.
func WithMaxRetries(n int) Option {
	return func(c *client) {
		c.retry.MaxAttempts = n
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a new ACS Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Demographics fetches the requested variable for all regions at the level.
// County GEOIDs concatenate the state and county FIPS codes. Rows with
// missing values or the negative ACS annotation sentinels are dropped.
// Transient API failures are retried with backoff.
func (c *client) Demographics(ctx context.Context, req Request) (map[string]float64, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	params := url.Values{"get": {"NAME," + req.Variable}}
	switch req.Level {
	case "state":
		params.Set("for", "state:*")
	case "county":
		params.Set("for", "county:*")
		params.Set("in", "state:*")
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/%d/%s?%s", c.baseURL, req.Year, req.Dataset, params.Encode())

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(body, req)
}

func (c *client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "census: rate limit")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: build request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "census: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("census: returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read body")
	}
	return body, nil
}

// parseResponse decodes the ACS array-of-arrays payload: a header row of
// column names followed by one row per region.
func parseResponse(body []byte, req Request) (map[string]float64, error) {
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "census: parse response")
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("census: empty response for %s", req.Variable)
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		if name, ok := cell.(string); ok {
			colIdx[strings.ToLower(name)] = i
		}
	}

	varIdx, ok := colIdx[strings.ToLower(req.Variable)]
	if !ok {
		return nil, eris.Errorf("census: response missing variable column %s", req.Variable)
	}
	stateIdx, ok := colIdx["state"]
	if !ok {
		return nil, eris.New("census: response missing state column")
	}
	countyIdx := -1
	if req.Level == "county" {
		if countyIdx, ok = colIdx["county"]; !ok {
			return nil, eris.New("census: response missing county column")
		}
	}

	values := make(map[string]float64, len(rows)-1)
	var skipped int

	for _, row := range rows[1:] {
		geoid := cellString(row, stateIdx)
		if countyIdx >= 0 {
			geoid += cellString(row, countyIdx)
		}
		if geoid == "" {
			skipped++
			continue
		}

		v, err := strconv.ParseFloat(cellString(row, varIdx), 64)
		if err != nil || v < 0 {
			// Negative values are ACS annotation sentinels, not data.
			skipped++
			continue
		}
		values[geoid] = v
	}

	if skipped > 0 {
		zap.L().Debug("census: skipped rows without usable values", zap.Int("skipped", skipped))
	}
	zap.L().Info("census: fetched demographics",
		zap.String("variable", req.Variable),
		zap.String("level", req.Level),
		zap.Int("regions", len(values)),
	)

	return values, nil
}

func validate(req Request) error {
	if req.Year <= 0 {
		return eris.Errorf("census: invalid year %d", req.Year)
	}
	if req.Dataset == "" {
		return eris.New("census: dataset is required")
	}
	if req.Variable == "" {
		return eris.New("census: variable is required")
	}
	if req.Level != "state" && req.Level != "county" {
		return eris.Errorf("census: unsupported level %q", req.Level)
	}
	return nil
}

func cellString(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
