package catalyst

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/telemetry"
)

// Client is the HTTP implementation of Controller. It authenticates with
// the controller token endpoint, retries transient transport failures and
// 5xx responses with exponential backoff, and never retries 4xx.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	token string
}

// envelope is the controller's synchronous response wrapper.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Version  string          `json:"version,omitempty"`
}

// taskEnvelope is the controller's asynchronous response wrapper.
type taskEnvelope struct {
	Response struct {
		TaskID string `json:"taskId"`
		URL    string `json:"url"`
	} `json:"response"`
}

// controllerError is the error shape some controller endpoints return with
// a 2xx status.
type controllerError struct {
	ErrorCode     any    `json:"errorcode,omitempty"`
	Message       string `json:"message,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// NewClient builds a gateway client from a normalized configuration.
func NewClient(cfg Config, logger zerolog.Logger, metrics *telemetry.Metrics) (*Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Verify}, //nolint:gosec // controller-operator choice via dnac_verify
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		},
		logger:  logger.With().Str("component", "catalyst-gateway").Logger(),
		metrics: metrics,
	}, nil
}

// Config returns the client's normalized configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// authenticate obtains a session token. Called lazily on the first request
// and again when the controller invalidates the token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL()+"/dna/system/api/v1/auth/token", nil)
	if err != nil {
		return engine.NewError(engine.FailGatewayHTTP, "build auth request", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.NewError(engine.FailGatewayHTTP, "controller authentication", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return engine.Errorf(engine.FailGatewayHTTP,
			"controller authentication returned %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"Token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return engine.NewError(engine.FailGatewayHTTP, "decode auth response", err)
	}
	c.token = body.Token
	return nil
}

// invalidateToken drops the cached token so the next request re-authenticates.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// request performs one controller call with retry on transient failures.
// family and function name the abstract operation for logs and metrics;
// params become query parameters; body, when non-nil, is sent as JSON.
func (c *Client) request(
	ctx context.Context,
	family, function, method, path string,
	params map[string]any,
	body any,
) ([]byte, error) {
	operation := family + "." + function

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, engine.NewError(engine.FailGatewayHTTP, "encode request body", err).
				WithOperation(operation)
		}
	}

	u, err := url.Parse(c.cfg.BaseURL() + path)
	if err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "build request url", err).
			WithOperation(operation)
	}
	q := u.Query()
	for k, v := range params {
		switch val := v.(type) {
		case string:
			if val != "" {
				q.Set(k, val)
			}
		case bool:
			q.Set(k, strconv.FormatBool(val))
		case int:
			q.Set(k, strconv.Itoa(val))
		default:
			q.Set(k, fmt.Sprintf("%v", val))
		}
	}
	u.RawQuery = q.Encode()

	var out []byte
	attempt := func() error {
		if err := c.authenticate(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return backoff.Permanent(engine.NewError(engine.FailGatewayHTTP, "build request", err).
				WithOperation(operation))
		}
		c.mu.Lock()
		req.Header.Set("X-Auth-Token", c.token)
		c.mu.Unlock()
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			// Transport failure: retryable.
			return engine.NewError(engine.FailGatewayHTTP, "controller request", err).
				WithOperation(operation)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		c.observe(family, function, resp.StatusCode, time.Since(start))
		if err != nil {
			return engine.NewError(engine.FailGatewayHTTP, "read response", err).
				WithOperation(operation)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.invalidateToken()
			return engine.Errorf(engine.FailGatewayHTTP, "token expired").
				WithOperation(operation)
		case resp.StatusCode == http.StatusNotFound:
			// Absent entity is a normal signal for resolvers.
			out = nil
			return nil
		case resp.StatusCode >= 500:
			return engine.Errorf(engine.FailGatewayHTTP, "controller returned %d: %s",
				resp.StatusCode, truncate(data, 200)).
				WithOperation(operation)
		case resp.StatusCode >= 400:
			return backoff.Permanent(engine.Errorf(engine.FailGatewayController,
				"controller rejected request with %d: %s",
				resp.StatusCode, truncate(data, 200)).
				WithOperation(operation))
		}

		if msg := embeddedError(data); msg != "" {
			return backoff.Permanent(engine.Errorf(engine.FailGatewayController, "%s", msg).
				WithOperation(operation))
		}
		out = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("controller request failed")
		return nil, err
	}
	return out, nil
}

// observe records gateway metrics for one response.
func (c *Client) observe(family, function string, status int, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveGatewayRequest(family, function, status, elapsed)
}

// embeddedError extracts a controller error carried in a 2xx payload.
func embeddedError(data []byte) string {
	var ce struct {
		Response controllerError `json:"response"`
	}
	if err := json.Unmarshal(data, &ce); err != nil {
		return ""
	}
	if ce.Response.ErrorCode != nil {
		if ce.Response.FailureReason != "" {
			return ce.Response.FailureReason
		}
		if ce.Response.Message != "" {
			return ce.Response.Message
		}
		return fmt.Sprintf("controller error code %v", ce.Response.ErrorCode)
	}
	return ""
}

// getJSON performs a synchronous GET and decodes the response field into
// target. A 404 leaves target untouched and returns found=false.
func (c *Client) getJSON(
	ctx context.Context,
	family, function, path string,
	params map[string]any,
	target any,
) (found bool, err error) {
	data, err := c.request(ctx, family, function, http.MethodGet, path, params, nil)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, engine.NewError(engine.FailGatewayHTTP, "decode response envelope", err).
			WithOperation(family + "." + function)
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(env.Response, target); err != nil {
		return false, engine.NewError(engine.FailGatewayHTTP, "decode response", err).
			WithOperation(family + "." + function)
	}
	return true, nil
}

// submitTask performs a mutation and returns the task future it produced.
func (c *Client) submitTask(
	ctx context.Context,
	family, function, method, path string,
	params map[string]any,
	body any,
) (engine.TaskFuture, error) {
	data, err := c.request(ctx, family, function, method, path, params, body)
	if err != nil {
		return engine.TaskFuture{}, err
	}
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return engine.TaskFuture{}, engine.NewError(engine.FailGatewayHTTP,
			"decode task response", err).WithOperation(family + "." + function)
	}
	if env.Response.TaskID == "" {
		return engine.TaskFuture{}, engine.Errorf(engine.FailGatewayController,
			"mutation returned no taskId").WithOperation(family + "." + function)
	}
	return engine.TaskFuture{TaskID: env.Response.TaskID}, nil
}

// truncate limits payload excerpts in error messages.
func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
