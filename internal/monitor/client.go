// Package monitor talks to Prometheus and Alertmanager over HTTP.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/leapstack-labs/promgen/internal/metrics"
	"github.com/leapstack-labs/promgen/internal/silence"
	"github.com/leapstack-labs/promgen/pkg/core"
)

const (
	reloadPath   = "/-/reload"
	silencesPath = "/api/v1/silences"

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4096
)

// Config holds the endpoints and timeouts of the monitoring stack.
type Config struct {
	PrometheusURL       string
	PrometheusTimeout   time.Duration
	AlertmanagerURL     string
	AlertmanagerTimeout time.Duration
	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client
}

// Client posts reloads to Prometheus and silences to Alertmanager.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil logger discards output.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PrometheusTimeout <= 0 {
		cfg.PrometheusTimeout = 10 * time.Second
	}
	if cfg.AlertmanagerTimeout <= 0 {
		cfg.AlertmanagerTimeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{cfg: cfg, http: client, logger: logger}
}

// Reload asks Prometheus to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	status, body, err := c.post(ctx, c.cfg.PrometheusURL, reloadPath, c.cfg.PrometheusTimeout, nil)
	if err == nil && !success(status) {
		err = &core.ReloadError{StatusCode: status, Body: body}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("reload", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	c.logger.Info("prometheus reloaded", "url", c.cfg.PrometheusURL)
	return nil
}

// PostSilence sends req to Alertmanager.
func (c *Client) PostSilence(ctx context.Context, req *silence.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode silence: %w", err)
	}
	c.logger.Debug("sending silence", "matchers", req.Matchers, "starts_at", req.StartsAt, "ends_at", req.EndsAt)

	status, body, err := c.post(ctx, c.cfg.AlertmanagerURL, silencesPath, c.cfg.AlertmanagerTimeout, payload)
	if err == nil && !success(status) {
		err = &core.SilenceRejectedError{StatusCode: status, Body: body}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("silence", metrics.Result(err)).Inc()
	return err
}

func (c *Client) post(ctx context.Context, base, path string, timeout time.Duration, payload []byte) (int, string, error) {
	if base == "" {
		return 0, "", errors.New("endpoint url is not configured")
	}
	target, err := resolve(base, path)
	if err != nil {
		return 0, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("POST %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, string(data), nil
}

// resolve replaces the path of base with path.
func resolve(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", base, err)
	}
	return u.ResolveReference(&url.URL{Path: path}).String(), nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
