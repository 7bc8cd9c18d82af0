// Package config resolves the endpoint and tuning knobs shared by the
// gateway and the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Brownie44l1/digit-pad/internal/digit"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress     = ":8080"
	DefaultAPIURL      = "http://localhost:8000"
	DefaultPredictPath = "/api/v1/predict"
)

type Config struct {
	Address string

	APIURL      string
	PredictPath string

	PredictTimeout time.Duration
	HealthTimeout  time.Duration

	Filter digit.Filter

	// RateLimit is the number of predictions per second the gateway
	// forwards; zero disables limiting.
	RateLimit float64

	LogLevel logrus.Level
}

func Default() *Config {
	return &Config{
		Address: DefaultAddress,

		APIURL:      DefaultAPIURL,
		PredictPath: DefaultPredictPath,

		PredictTimeout: 10 * time.Second,
		HealthTimeout:  2 * time.Second,

		Filter: digit.Lanczos,

		RateLimit: 5,

		LogLevel: logrus.InfoLevel,
	}
}

// Load applies, in order, the defaults, the YAML file at path (skipped
// when path is empty) and the API_URL, PORT and LOG_LEVEL environment
// variables.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := c.apply(data); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

type configFile struct {
	Address string `yaml:"address"`

	APIURL      string `yaml:"api_url"`
	PredictPath string `yaml:"predict_path"`

	PredictTimeout string `yaml:"predict_timeout"`
	HealthTimeout  string `yaml:"health_timeout"`

	Filter string `yaml:"filter"`

	RateLimit *float64 `yaml:"rate_limit"`

	LogLevel string `yaml:"log_level"`
}

func (c *Config) apply(data []byte) error {
	var file configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if file.Address != "" {
		c.Address = file.Address
	}

	if file.APIURL != "" {
		c.SetAPIURL(file.APIURL)
	}

	if file.PredictPath != "" {
		c.PredictPath = file.PredictPath
	}

	if err := parseDuration(file.PredictTimeout, &c.PredictTimeout); err != nil {
		return fmt.Errorf("predict_timeout: %w", err)
	}

	if err := parseDuration(file.HealthTimeout, &c.HealthTimeout); err != nil {
		return fmt.Errorf("health_timeout: %w", err)
	}

	if file.Filter != "" {
		filter, err := digit.ParseFilter(file.Filter)

		if err != nil {
			return err
		}

		c.Filter = filter
	}

	if file.RateLimit != nil {
		c.RateLimit = *file.RateLimit
	}

	if file.LogLevel != "" {
		level, err := logrus.ParseLevel(file.LogLevel)

		if err != nil {
			return err
		}

		c.LogLevel = level
	}

	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if val := getenv("API_URL"); val != "" {
		c.SetAPIURL(val)
	}

	if val := getenv("PORT"); val != "" {
		c.Address = ":" + strings.TrimPrefix(val, ":")
	}

	if val := getenv("LOG_LEVEL"); val != "" {
		level, err := logrus.ParseLevel(val)

		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}

		c.LogLevel = level
	}

	return nil
}

// SetAPIURL accepts either the service base URL or the full predict URL.
func (c *Config) SetAPIURL(val string) {
	val = strings.TrimRight(strings.TrimSpace(val), "/")

	if base, ok := strings.CutSuffix(val, DefaultPredictPath); ok {
		val = base
	}

	c.APIURL = val
}

func parseDuration(val string, d *time.Duration) error {
	if val == "" {
		return nil
	}

	parsed, err := time.ParseDuration(val)

	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)

	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIURL)
	}

	if !strings.HasPrefix(c.PredictPath, "/") {
		return fmt.Errorf("predict path must start with /: %q", c.PredictPath)
	}

	if c.PredictTimeout <= 0 || c.HealthTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}

	if !c.Filter.Valid() {
		return fmt.Errorf("unsupported resampling filter %s", c.Filter)
	}

	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}

	return nil
}

func (c *Config) PredictURL() string {
	return strings.TrimRight(c.APIURL, "/") + c.PredictPath
}

func (c *Config) HealthURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/"
}
