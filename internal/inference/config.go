package inference

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout bounds a single prediction, including reading the response.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithHealthURL(url string) Option {
	return func(c *Client) {
		c.healthURL = url
	}
}

func WithHealthTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.healthTimeout = timeout
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
