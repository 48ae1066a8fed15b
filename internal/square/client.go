package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cbg-gallery/portal/internal/platform/config"
)

const (
	tracerName       = "github.com/cbg-gallery/portal/internal/square"
	versionHeader    = "Square-Version"
	maxErrorBodySize = 64 << 10
)

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger for retry and failure diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects the time source used for inventory change timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// Client talks to the Square catalog and inventory REST APIs.
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	timeout    time.Duration
	backoff    time.Duration
	http       *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient constructs a client from the Square configuration block.
func NewClient(cfg config.SquareConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, ErrMissingCredentials
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("square: base url is required")
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	client := &Client{
		baseURL:    baseURL,
		token:      token,
		apiVersion: strings.TrimSpace(cfg.APIVersion),
		timeout:    cfg.Timeout,
		backoff:    cfg.RetryBackoff,
		http:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter:    rate.NewLimiter(limit, burst),
		tracer:     otel.Tracer(tracerName),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type call struct {
	op        string
	method    string
	path      string
	query     url.Values
	body      any
	retryable bool
}

// do issues the call and decodes a successful response into out. Retryable calls get one
// more attempt after a backoff pause when the first failure is transient.
func (c *Client) do(ctx context.Context, req call, out any) error {
	ctx, span := c.tracer.Start(ctx, "square."+req.op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("square.operation", req.op),
		attribute.String("http.request.method", req.method),
	)

	var payload []byte
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("square %s: encode request: %w", req.op, err)
		}
		payload = data
	}

	attempts := 1
	if req.retryable {
		attempts = 2
	}
	bo := gax.Backoff{Initial: c.backoff, Max: 4 * c.backoff, Multiplier: 2}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var status int
		status, err = c.attempt(ctx, req, payload, out)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return nil
		}
		var apiErr *APIError
		if attempt == attempts || !errors.As(err, &apiErr) || !apiErr.IsUnavailable() || ctx.Err() != nil {
			break
		}
		c.logger.Warn("square call failed, retrying",
			zap.String("operation", req.op),
			zap.Int("status", status),
			zap.Error(err),
		)
		if sleepErr := gax.Sleep(ctx, bo.Pause()); sleepErr != nil {
			break
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Client) attempt(ctx context.Context, req call, payload []byte, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &APIError{Op: req.op, Err: err}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("square %s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		httpReq.Header.Set(versionHeader, c.apiVersion)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, &APIError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, decodeAPIError(req.op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, req.op, err)
	}
	return resp.StatusCode, nil
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &APIError{Op: op, Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}
	var envelope errorEnvelope
	if len(data) > 0 && json.Unmarshal(data, &envelope) == nil {
		apiErr.Details = envelope.Errors
	}
	if len(apiErr.Details) == 0 {
		apiErr.Err = errors.New(http.StatusText(resp.StatusCode))
	}
	return apiErr
}
