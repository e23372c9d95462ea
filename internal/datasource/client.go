package datasource

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

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultKDataFields is the column set fetched when the caller does not ask
// for specific fields.
var DefaultKDataFields = []string{"date", "code", "open", "high", "low", "close", "volume", "amount", "pctChg"}

// envelope is the wire format of the data gateway: baostock-style parallel
// fields/data arrays plus an error code.
type envelope struct {
	ErrorCode string     `json:"error_code"`
	ErrorMsg  string     `json:"error_msg"`
	Fields    []string   `json:"fields"`
	Data      [][]string `json:"data"`
}

const apiOKCode = "0"

// Client is a FinancialDataSource backed by the HTTP data gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new data gateway client.
type ClientOptions struct {
	BaseURL         string
	Token           string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new data gateway client with rate limiting and retries.
func NewClient(opts ClientOptions) *Client {
	// Apply defaults if not set
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}

	return &Client{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		logger:  log.With().Str("component", "data_client").Logger(),
	}
}

// query performs one gateway call and decodes the tabular envelope.
func (c *Client) query(ctx context.Context, path string, params url.Values) (*ResultSet, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	if c.token != "" {
		params.Set("token", c.token)
	}
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	c.logger.Debug().Str("path", path).Msg("Querying data gateway")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Use exponential backoff for retries
	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if env.ErrorCode != apiOKCode {
		c.logger.Error().Str("error_code", env.ErrorCode).Str("error_msg", env.ErrorMsg).Msg("Data API error")
		return nil, &APIError{Code: env.ErrorCode, Message: env.ErrorMsg}
	}

	if len(env.Data) == 0 {
		c.logger.Warn().Str("path", path).Msg("No rows in response")
		return nil, fmt.Errorf("query %s: %w", path, ErrNoData)
	}

	rows := make([]Record, 0, len(env.Data))
	for _, cells := range env.Data {
		row := make(Record, len(env.Fields))
		for i, field := range env.Fields {
			if i < len(cells) {
				row[field] = cells[i]
			}
		}
		rows = append(rows, row)
	}

	c.logger.Debug().Int("rows", len(rows)).Str("path", path).Msg("Fetched rows")
	return &ResultSet{Fields: env.Fields, Rows: rows}, nil
}

// GetHistoricalKData implements FinancialDataSource.
func (c *Client) GetHistoricalKData(ctx context.Context, code, startDate, endDate, frequency, adjustFlag string, fields []string) (*ResultSet, error) {
	if frequency == "" {
		frequency = "d"
	}
	if adjustFlag == "" {
		adjustFlag = "3" // no adjustment
	}
	if len(fields) == 0 {
		fields = DefaultKDataFields
	}

	params := url.Values{}
	params.Set("code", code)
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)
	params.Set("frequency", frequency)
	params.Set("adjustflag", adjustFlag)
	params.Set("fields", strings.Join(fields, ","))

	return c.query(ctx, "/query/history_k_data", params)
}

// GetGrowthData implements FinancialDataSource.
func (c *Client) GetGrowthData(ctx context.Context, code, year string, quarter int) (*ResultSet, error) {
	params := url.Values{}
	params.Set("code", code)
	params.Set("year", year)
	params.Set("quarter", strconv.Itoa(quarter))

	return c.query(ctx, "/query/growth_data", params)
}

// GetCashFlowData implements FinancialDataSource.
func (c *Client) GetCashFlowData(ctx context.Context, code, year string, quarter int) (*ResultSet, error) {
	params := url.Values{}
	params.Set("code", code)
	params.Set("year", year)
	params.Set("quarter", strconv.Itoa(quarter))

	return c.query(ctx, "/query/cash_flow_data", params)
}

// GetStockBasicInfo implements FinancialDataSource.
func (c *Client) GetStockBasicInfo(ctx context.Context, code string) (*ResultSet, error) {
	params := url.Values{}
	params.Set("code", code)

	return c.query(ctx, "/query/stock_basic", params)
}

// GetStockIndustry implements FinancialDataSource.
func (c *Client) GetStockIndustry(ctx context.Context, code, date string) (*ResultSet, error) {
	params := url.Values{}
	if code != "" {
		params.Set("code", code)
	}
	if date != "" {
		params.Set("date", date)
	}

	return c.query(ctx, "/query/stock_industry", params)
}
