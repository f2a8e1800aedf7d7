package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"oil-forecast/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://query1.finance.yahoo.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	userAgent = "Mozilla/5.0 (compatible; oil-forecast/1.0)"
)

// closeScale is the number of decimal places kept from the feed's float closes.
const closeScale = 6

// YahooClient fetches daily closes from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	now         func() time.Time
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// YahooOption configures YahooClient.
type YahooOption func(*YahooClient)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) YahooOption {
	return func(c *YahooClient) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) YahooOption {
	return func(c *YahooClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) YahooOption {
	return func(c *YahooClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) YahooOption {
	return func(c *YahooClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) YahooOption {
	return func(c *YahooClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) YahooOption {
	return func(c *YahooClient) {
		c.client = client
	}
}

// WithClock sets the clock used for the end of the requested range.
func WithClock(now func() time.Time) YahooOption {
	return func(c *YahooClient) {
		c.now = now
	}
}

// WithTracer sets the tracer for fetch spans.
func WithTracer(t trace.Tracer) YahooOption {
	return func(c *YahooClient) {
		c.tracer = t
	}
}

// WithLogger sets the logger for retry warnings.
func WithLogger(l zerolog.Logger) YahooOption {
	return func(c *YahooClient) {
		c.logger = l
	}
}

// NewYahooClient creates a chart API client.
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      noop.NewTracerProvider().Tracer("marketdata"),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse is the subset of the chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartError is an application-level error reported by the chart API.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("chart error %s: %s", e.Code, e.Description)
}

// Is lets errors.Is match ErrUnknownSymbol for "Not Found" chart errors.
func (e *ChartError) Is(target error) bool {
	return target == ErrUnknownSymbol && e.Code == "Not Found"
}

// FetchDaily implements Source.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, start time.Time) ([]domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "yahoo.fetch-daily",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("start", start.Format(domain.DateLayout)),
		))
	defer span.End()

	start = domain.DateOf(start)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(c.now().Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var resp chartResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	quotes, err := parseChart(symbol, &resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	quotes = sinceDate(dedupeLastWins(quotes), start)

	span.SetAttributes(attribute.Int("quotes", len(quotes)))
	return quotes, nil
}

// get performs a GET with retries and exponential backoff.
// Transport errors, 429 and 5xx are retried; chart errors and other statuses are not.
func (c *YahooClient) get(ctx context.Context, endpoint string, out *chartResponse) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("retrying chart request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body))
			continue
		}

		// 4xx bodies usually carry a chart error; prefer it over the bare status
		if err := json.Unmarshal(body, out); err != nil {
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body))
			}
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if out.Chart.Error != nil {
			return out.Chart.Error
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body))
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseChart converts the first chart result into quotes, dropping null closes.
func parseChart(symbol string, resp *chartResponse) ([]domain.Quote, error) {
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := r.Indicators.Quote[0].Close
	if len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("malformed chart: %d timestamps, %d closes", len(r.Timestamp), len(closes))
	}

	quotes := make([]domain.Quote, 0, len(closes))
	for i, v := range closes {
		if v == nil {
			continue
		}
		// session timestamps are shifted into exchange time before taking the date
		date := domain.DateOf(time.Unix(r.Timestamp[i]+r.Meta.GMTOffset, 0).UTC())
		quotes = append(quotes, domain.Quote{
			Symbol: symbol,
			Date:   date,
			Close:  decimal.NewFromFloat(*v).Round(closeScale),
		})
	}
	return quotes, nil
}

// dedupeLastWins keeps the last quote per date, preserving first-seen order.
func dedupeLastWins(qs []domain.Quote) []domain.Quote {
	idx := make(map[time.Time]int, len(qs))
	out := make([]domain.Quote, 0, len(qs))
	for _, q := range qs {
		if i, ok := idx[q.Date]; ok {
			out[i] = q
			continue
		}
		idx[q.Date] = len(out)
		out = append(out, q)
	}
	return out
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
