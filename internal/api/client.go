package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

// HealthStatus is the answer of GET /health.
type HealthStatus struct {
	Status         string `json:"status"`
	TemplateExists bool   `json:"template_exists"`
	TemplatePath   string `json:"template_path"`
}

// Healthy reports whether the service can process documents.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy" && h.TemplateExists
}

// ServiceInfo is the answer of GET /.
type ServiceInfo struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client queries the informational endpoints of the processing service.
// GET requests are retried; uploads never go through this client.
type Client struct {
	httpClient *nethttp.Client
	retry      *retryablehttp.Client
	baseURL    string
}

// NewClient wraps httpClient with retries for idempotent requests.
func NewClient(baseURL string, httpClient *nethttp.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = nethttp.DefaultClient
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.HealthCheckRetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryLogger{logger: logger}
	retryClient.ErrorHandler = lastResponse

	return &Client{
		httpClient: retryClient.StandardClient(),
		retry:      retryClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// lastResponse hands the final response back once retries are exhausted so
// the caller can read the service's error body.
func lastResponse(resp *nethttp.Response, err error, _ int) (*nethttp.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.getJSON(ctx, constants.HealthPath, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Info calls GET /.
func (c *Client) Info(ctx context.Context) (*ServiceInfo, error) {
	var info ServiceInfo
	if err := c.getJSON(ctx, constants.InfoPath, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transfer.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		return transfer.ParseServerError(resp.StatusCode, statusText(resp), body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
