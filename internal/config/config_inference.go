package config

import (
	"github.com/Brownie44l1/digit-pad/internal/digit"
	"github.com/Brownie44l1/digit-pad/internal/inference"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func (c *Config) Client(logger *logrus.Entry) (*inference.Client, error) {
	return inference.New(c.PredictURL(),
		inference.WithTimeout(c.PredictTimeout),
		inference.WithHealthURL(c.HealthURL()),
		inference.WithHealthTimeout(c.HealthTimeout),
		inference.WithLogger(logger),
	)
}

// Limiter returns nil when rate limiting is disabled.
func (c *Config) Limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(c.RateLimit), 1)
}

func (c *Config) NormalizeOptions() []digit.Option {
	return []digit.Option{
		digit.WithFilter(c.Filter),
	}
}
