package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
)

// Default public endpoints of the Piston API.
const (
	DefaultRuntimesURL = "https://emkc.org/api/v2/piston/runtimes"
	DefaultExecuteURL  = "https://emkc.org/api/v2/piston/execute"
)

// MaxBodySize bounds every response body read from the API.
const MaxBodySize = 4 << 20

var (
	// ErrTransport is returned when the request never produced an HTTP response.
	ErrTransport = errors.New("request failed")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response body")
)

// MalformedResponseError carries the raw 2xx body that failed to decode.
// It matches ErrMalformedResponse with errors.Is.
type MalformedResponseError struct {
	Body []byte
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}

// Runtime is one entry of the runtimes catalog. Fields other than
// language and version are informational.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases,omitempty"`
	Runtime  string   `json:"runtime,omitempty"`
}

// File is a single source file submitted for execution.
type File struct {
	Content string `json:"content"`
}

// ExecuteRequest is the body POSTed to the execute endpoint.
type ExecuteRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []File `json:"files"`
}

// RunResult holds the captured output of the run stage.
type RunResult struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output,omitempty"`
	Code   *int    `json:"code,omitempty"`
	Signal *string `json:"signal,omitempty"`
}

// ExecuteResponse is a decoded 2xx execute response. Run is nil when the
// body has no "run" field; Raw keeps the body for diagnostics.
type ExecuteResponse struct {
	Language string     `json:"language,omitempty"`
	Version  string     `json:"version,omitempty"`
	Run      *RunResult `json:"run,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// APIError is returned for non-2xx responses. Message is taken from the
// JSON error body when present.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// RuntimeLister fetches the runtimes catalog.
type RuntimeLister interface {
	Runtimes(ctx context.Context) ([]Runtime, error)
}

// Executor submits source code for remote execution.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error)
}

// Client talks to a Piston API instance.
type Client struct {
	logger      *zap.Logger
	httpClient  *http.Client
	runtimesURL string
	executeURL  string
}

// ClientOption defines a functional option for Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every request
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRuntimesURL overrides the runtimes endpoint
func WithRuntimesURL(u string) ClientOption {
	return func(c *Client) {
		c.runtimesURL = u
	}
}

// WithExecuteURL overrides the execute endpoint
func WithExecuteURL(u string) ClientOption {
	return func(c *Client) {
		c.executeURL = u
	}
}

// WithTimeout sets a client-wide request timeout on a copy of the current
// HTTP client. Zero keeps the transport default of no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		httpClient := *c.httpClient
		httpClient.Timeout = d
		c.httpClient = &httpClient
	}
}

// New creates a Client for the public Piston endpoints
func New(logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		logger:      logger,
		httpClient:  &http.Client{},
		runtimesURL: DefaultRuntimesURL,
		executeURL:  DefaultExecuteURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewFromConfig creates a Client for the endpoints in cfg
func NewFromConfig(cfg *config.Config, logger *zap.Logger) *Client {
	return New(logger,
		WithTimeout(cfg.GetTimeout()),
		WithRuntimesURL(cfg.Piston.RuntimesURL),
		WithExecuteURL(cfg.Piston.ExecuteURL),
	)
}

// Runtimes fetches the list of available language runtimes in the order
// the API returns them.
func (c *Client) Runtimes(ctx context.Context) ([]Runtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.runtimesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var runtimes []Runtime
	if err := json.Unmarshal(body, &runtimes); err != nil {
		return nil, &MalformedResponseError{Body: body, Err: err}
	}

	c.logger.Debug("runtimes fetched", zap.Int("count", len(runtimes)))
	return runtimes, nil
}

// Execute submits req to the execute endpoint.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.executeURL, bytes.NewReader(payload))
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return ExecuteResponse{}, err
	}

	var resp ExecuteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ExecuteResponse{}, &MalformedResponseError{Body: body, Err: err}
	}
	resp.Raw = body

	return resp, nil
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Message
		}

		c.logger.Debug("remote API returned error status",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	return body, nil
}
