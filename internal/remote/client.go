package remote

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

	"order-portal/internal/util"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Config configures the backend client
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Client talks to the order and payment REST APIs
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   *validatorv10.Validate
	logger     *zap.Logger
}

// NewClient creates a new backend client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:  rate.NewLimiter(limit, burst),
		validate: NewValidator(),
		logger:   util.GetLogger(),
	}
}

// envelope is the {status, msg, data} wrapper every endpoint answers with.
type envelope struct {
	Status  int             `json:"status"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Outcome string          `json:"outcome,omitempty"`
}

func (e *envelope) ok() bool {
	return e.Status == 1
}

func (e *envelope) dataIsNull() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// call sends one request and returns the decoded envelope. Non-2xx answers
// become ClientError or ServerError, transport failures NetworkError.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body interface{}) (*envelope, error) {
	ctx, span := util.StartSpan(ctx, "RemoteClient."+op)
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		util.RemoteRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		util.RemoteRequestsTotal.WithLabelValues(op, outcome).Inc()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "network_error"
		return nil, &NetworkError{Op: op, Err: err}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			outcome = "encode_error"
			return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		outcome = "encode_error"
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "network_error"
		c.logger.Warn("Backend request failed",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		outcome = "network_error"
		return nil, &NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		outcome = "server_error"
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	case resp.StatusCode >= 400:
		outcome = "client_error"
		return nil, &ClientError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	if err := checkSchema(op, envelopeSchema, raw); err != nil {
		outcome = "schema_error"
		c.logger.Error("Backend response violates envelope contract",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		outcome = "schema_error"
		return nil, &SchemaError{Op: op, Details: []string{err.Error()}}
	}
	return &env, nil
}

// decodeData checks env.Data against schema and unmarshals it into out.
func (c *Client) decodeData(op string, schema *gojsonschema.Schema, env *envelope, out interface{}) error {
	if err := checkSchema(op, schema, env.Data); err != nil {
		util.RemoteRequestsTotal.WithLabelValues(op, "schema_error").Inc()
		c.logger.Error("Backend response violates data contract",
			zap.String("operation", op),
			zap.Error(err))
		return err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &SchemaError{Op: op, Details: []string{err.Error()}}
	}
	return nil
}

// errorMessage extracts msg from an error body when the backend sent one.
func errorMessage(raw []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Msg != "" {
		return env.Msg
	}
	return fallback
}

// flexID accepts identifiers sent either as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 and the zone-less LocalDateTime forms the
// backend emits; zone-less values are UTC.
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func parseOptionalTimestamp(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseTimestamp(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
