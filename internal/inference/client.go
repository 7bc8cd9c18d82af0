// Package inference talks to a remote digit classifier over HTTP.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultHealthTimeout = 2 * time.Second

	// fileField and fileName describe the single multipart part the
	// classifier reads the image from.
	fileField = "file"
	fileName  = "digit.png"

	// maxResponseSize caps how much of a response body is read; a valid
	// prediction is a few hundred bytes.
	maxResponseSize = 1 << 20
)

var _ Predictor = (*Client)(nil)

// Client is stateless; each call is independent and never retried.
type Client struct {
	url       string
	healthURL string

	timeout       time.Duration
	healthTimeout time.Duration

	httpClient *http.Client
	client     *resty.Client

	logger *logrus.Entry
}

// New returns a client for the predict endpoint at url.
func New(url string, options ...Option) (*Client, error) {
	u, err := parseURL(url)

	if err != nil {
		return nil, err
	}

	c := &Client{
		url: u.String(),

		timeout:       DefaultTimeout,
		healthTimeout: DefaultHealthTimeout,

		httpClient: &http.Client{},

		logger: logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, option := range options {
		option(c)
	}

	if c.healthURL == "" {
		root := *u
		root.Path = "/"
		root.RawPath = ""
		root.RawQuery = ""

		c.healthURL = root.String()
	}

	if _, err := parseURL(c.healthURL); err != nil {
		return nil, fmt.Errorf("health url: %w", err)
	}

	if c.timeout <= 0 || c.healthTimeout <= 0 {
		return nil, errors.New("timeouts must be positive")
	}

	hc := *c.httpClient
	transport := hc.Transport

	if transport == nil {
		transport = http.DefaultTransport
	}

	hc.Transport = otelhttp.NewTransport(transport)

	c.client = resty.NewWithClient(&hc).
		SetLogger(c.logger).
		SetResponseBodyLimit(maxResponseSize)

	return c, nil
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)

	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url: %q", raw)
	}

	return u, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) HealthURL() string {
	return c.healthURL
}

// Predict uploads an encoded digit and returns the classifier's answer.
// Every failure is an *Error.
func (c *Client) Predict(ctx context.Context, payload []byte) (*PredictionResult, error) {
	if len(payload) == 0 {
		return nil, &Error{Kind: NoDrawing}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id := requestID(ctx)
	logger := c.logger.WithField("request_id", id)

	started := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", id).
		SetFileReader(fileField, fileName, bytes.NewReader(payload)).
		Post(c.url)

	if err != nil {
		e := classify(err)

		logger.WithError(err).
			WithField("kind", e.Kind.String()).
			WithField("elapsed", time.Since(started)).
			Warn("prediction request failed")

		return nil, e
	}

	logger.WithField("status", resp.StatusCode()).
		WithField("elapsed", time.Since(started)).
		Debug("prediction response received")

	if resp.StatusCode() != http.StatusOK {
		return nil, &Error{
			Kind:       ServerRejected,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}

	result, err := parseResult(resp.Body())

	if err != nil {
		logger.WithError(err).Warn("unexpected prediction response")
		return nil, err
	}

	return result, nil
}

// requestID reuses the id the gateway assigned to the incoming request so
// gateway and classifier logs can be joined.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}

	return uuid.NewString()
}

// CheckHealth reports whether the service root answers 200 within the
// health timeout. It is advisory only.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.healthURL)

	if err != nil {
		c.logger.WithError(err).Debug("health check failed")
		return false
	}

	return resp.StatusCode() == http.StatusOK
}

// parseResult validates the response field by field so that a partially
// populated result is never returned.
func parseResult(body []byte) (*PredictionResult, error) {
	var fields map[string]json.RawMessage

	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, malformed("", err)
	}

	var result PredictionResult

	if err := decodeField(fields, "predicted_class", &result.PredictedClass); err != nil {
		return nil, err
	}

	if result.PredictedClass < 0 || result.PredictedClass >= NumClasses {
		return nil, malformed("predicted_class", fmt.Errorf("class %d out of range", result.PredictedClass))
	}

	if err := decodeField(fields, "confidence", &result.Confidence); err != nil {
		return nil, err
	}

	var probabilities []json.RawMessage

	if err := decodeField(fields, "probabilities", &probabilities); err != nil {
		return nil, err
	}

	if len(probabilities) != NumClasses {
		return nil, malformed("probabilities", fmt.Errorf("expected %d entries, got %d", NumClasses, len(probabilities)))
	}

	result.Probabilities = make([]float64, NumClasses)

	for i, raw := range probabilities {
		if isNull(raw) {
			return nil, malformed("probabilities", fmt.Errorf("entry %d is null", i))
		}

		if err := json.Unmarshal(raw, &result.Probabilities[i]); err != nil {
			return nil, malformed("probabilities", fmt.Errorf("entry %d: %w", i, err))
		}
	}

	return &result, nil
}

func decodeField(fields map[string]json.RawMessage, name string, v any) error {
	raw, ok := fields[name]

	if !ok || isNull(raw) {
		return malformed(name, errors.New("missing"))
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return malformed(name, err)
	}

	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
