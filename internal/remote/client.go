// Package remote talks to the query endpoints of the data service.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/metrics"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Endpoint names, also used as metric labels
const (
	endpointReadings = "readings"
	endpointSeries   = "series"
	endpointAlerts   = "alerts"
)

// StatusError carries the response of a non-2xx call
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token, when set, yields the bearer token for each request
	Token   func() (string, error)
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

type Client struct {
	base    string
	h       *http.Client
	token   func() (string, error)
	logger  *zap.Logger
	metrics *metrics.Collector
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		h:       &http.Client{Timeout: timeout, Transport: NewTransport(timeout)},
		token:   cfg.Token,
		logger:  logger.With(zap.String("component", "remote")),
		metrics: cfg.Metrics,
	}
}

// NewTransport is the transport used for every call to the data service.
// responseTimeout bounds the wait for response headers.
func NewTransport(responseTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: responseTimeout,
	}
}

// RecentReadings fetches the newest samples, returned oldest first
func (c *Client) RecentReadings(ctx context.Context, limit int) ([]models.Sample, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var samples []models.Sample
	err := c.get(ctx, endpointReadings, "/api/readings", q, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&samples)
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(samples)
	return samples, nil
}

// Series fetches one metric over the last hours, oldest first
func (c *Client) Series(ctx context.Context, key models.SensorKey, hours, limit int) ([]models.Point, error) {
	q := url.Values{}
	q.Set("hours", strconv.Itoa(hours))
	q.Set("limit", strconv.Itoa(limit))

	var points []models.Point
	err := c.get(ctx, endpointSeries, "/api/readings/"+url.PathEscape(string(key)), q, func(body io.Reader) error {
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		points, err = models.DecodeSeries(b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// RecentAlerts fetches the newest alerts, newest first as served
func (c *Client) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var alerts []models.Alert
	err := c.get(ctx, endpointAlerts, "/api/alerts", q, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&alerts)
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, decode func(io.Reader) error) (err error) {
	defer func() {
		if err != nil && c.metrics != nil {
			c.metrics.RemoteQueryError.WithLabelValues(endpoint).Inc()
		}
	}()

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Remote query",
		zap.String("endpoint", endpoint),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
