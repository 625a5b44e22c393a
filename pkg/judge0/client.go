package judge0

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const resultFields = "token,status,stdout,stderr,compile_output,message,time,memory"

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepcode",
		Subsystem: "judge0",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests sent to the execution service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepcode",
		Subsystem: "judge0",
		Name:      "request_failures_total",
		Help:      "Number of failed requests to the execution service",
	}, []string{"operation"})
)

// ErrEmptyBatch is returned when a batch call carries no entries.
var ErrEmptyBatch = errors.New("judge0: empty batch")

// Executor is the subset of the Judge0 API used by the grading pipeline.
type Executor interface {
	SubmitBatch(ctx context.Context, submissions []Submission) ([]string, error)
	GetBatch(ctx context.Context, tokens []string) ([]Result, error)
}

// Config groups client configuration values.
type Config struct {
	BaseURL    string
	AuthHeader string
	AuthToken  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to a Judge0 compatible execution service over HTTP.
type Client struct {
	baseURL    string
	authHeader string
	authToken  string
	http       *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient constructs a client. Each client owns its HTTP connection pool.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("judge0 base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse judge0 base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	header := cfg.AuthHeader
	if header == "" {
		header = "X-Auth-Token"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL:    base,
		authHeader: header,
		authToken:  cfg.AuthToken,
		http:       httpClient,
		tracer:     otel.Tracer("github.com/noah-isme/prepcode-api/pkg/judge0"),
		logger:     logger,
	}, nil
}

// SubmitBatch queues the submissions and returns one token per submission, in order.
func (c *Client) SubmitBatch(parent context.Context, submissions []Submission) ([]string, error) {
	if len(submissions) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, span := c.tracer.Start(parent, "judge0.submit_batch", trace.WithAttributes(
		attribute.Int("judge0.batch_size", len(submissions)),
	))
	defer span.End()

	body, err := json.Marshal(batchRequest{Submissions: submissions})
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	var tokens []tokenResponse
	if err := c.do(ctx, "submit_batch", http.MethodPost, "/submissions/batch?base64_encoded=false", body, &tokens); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(tokens) != len(submissions) {
		err := fmt.Errorf("judge0 returned %d tokens for %d submissions", len(tokens), len(submissions))
		requestFailures.WithLabelValues("submit_batch").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for i, token := range tokens {
		if strings.TrimSpace(token.Token) == "" {
			err := fmt.Errorf("judge0 rejected submission %d", i)
			requestFailures.WithLabelValues("submit_batch").Inc()
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, token.Token)
	}

	return out, nil
}

// GetBatch fetches the current state of each token. The returned slice is aligned with tokens;
// entries the service did not report are returned with a zero status.
func (c *Client) GetBatch(parent context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, span := c.tracer.Start(parent, "judge0.get_batch", trace.WithAttributes(
		attribute.Int("judge0.batch_size", len(tokens)),
	))
	defer span.End()

	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("base64_encoded", "false")
	query.Set("fields", resultFields)

	var payload batchResponse
	if err := c.do(ctx, "get_batch", http.MethodGet, "/submissions/batch?"+query.Encode(), nil, &payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byToken := make(map[string]Result, len(payload.Submissions))
	for _, item := range payload.Submissions {
		if item == nil {
			continue
		}
		byToken[item.Token] = *item
	}

	results := make([]Result, len(tokens))
	for i, token := range tokens {
		if result, ok := byToken[token]; ok {
			results[i] = result
			continue
		}
		results[i] = Result{Token: token}
	}

	return results, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set(c.authHeader, c.authToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		requestFailures.WithLabelValues(operation).Inc()
		c.logger.Warn().Str("operation", operation).Int("status", resp.StatusCode).Msg("execution service rejected request")
		return fmt.Errorf("%s: execution service responded %d: %s", operation, resp.StatusCode, strings.TrimSpace(truncate(string(data), 256)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		requestFailures.WithLabelValues(operation).Inc()
		return fmt.Errorf("decode %s response: %w", operation, err)
	}

	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
