package coinmarketcap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/cadvi/internal/domain/market"
)

// Name identifies the provider in logs and metrics
const Name = "coinmarketcap"

// DefaultBaseURL is the CoinMarketCap Pro API
const DefaultBaseURL = "https://pro-api.coinmarketcap.com"

const listingsPath = "/v1/cryptocurrency/listings/latest"

var (
	// ErrProviderUnavailable wraps every transport, status or breaker failure
	ErrProviderUnavailable = errors.New("market data provider unavailable")

	// ErrMissingAPIKey is returned when no key is configured
	ErrMissingAPIKey = errors.New("coinmarketcap api key not configured")
)

// Config controls the listings client
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"-"` // CMC_API_KEY only
	Convert      string        `yaml:"convert"`
	Timeout      time.Duration `yaml:"timeout"`
	RPS          float64       `yaml:"rps"`   // basic plan: 30 calls/min
	Burst        int           `yaml:"burst"` // token bucket size
	MaxRetries   int           `yaml:"max_retries"`
	RetryWait    time.Duration `yaml:"retry_wait"`
	RetryMaxWait time.Duration `yaml:"retry_max_wait"`

	FailureThreshold uint32        `yaml:"failure_threshold"` // consecutive failures to open
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // time spent open before half-open
}

// DefaultConfig returns conservative settings for the basic API plan
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Convert:          "USD",
		Timeout:          10 * time.Second,
		RPS:              0.5,
		Burst:            2,
		MaxRetries:       2,
		RetryWait:        500 * time.Millisecond,
		RetryMaxWait:     5 * time.Second,
		FailureThreshold: 3,
		OpenTimeout:      60 * time.Second,
	}
}

// Validate checks the client settings
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps and burst must be positive, got %.2f/%d", c.RPS, c.Burst)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be ≥0, got %d", c.MaxRetries)
	}
	if c.FailureThreshold == 0 {
		return fmt.Errorf("failure threshold must be positive")
	}
	return nil
}

// Observer receives request telemetry
type Observer interface {
	ObserveRequest(provider, status string, d time.Duration)
	ObserveBreakerState(provider string, state int)
}

// Client fetches the listings snapshot from CoinMarketCap
type Client struct {
	config   Config
	http     *resty.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	observer Observer
}

// Option customises a client
type Option func(*Client)

// WithObserver attaches request telemetry
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient swaps the transport, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).
			SetBaseURL(c.config.BaseURL).
			SetTimeout(c.config.Timeout)
		c.configureResty()
	}
}

// NewClient builds a rate-limited, circuit-broken client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coinmarketcap config: %w", err)
	}
	if config.Convert == "" {
		config.Convert = "USD"
	}

	c := &Client{
		config:  config,
		http:    resty.New().SetBaseURL(config.BaseURL).SetTimeout(config.Timeout),
		limiter: rate.NewLimiter(rate.Limit(config.RPS), config.Burst),
	}
	c.configureResty()

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        Name,
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state changed")
			if c.observer != nil {
				c.observer.ObserveBreakerState(name, int(to))
			}
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) configureResty() {
	c.http.
		SetHeader("Accept", "application/json").
		SetHeader("X-CMC_PRO_API_KEY", c.config.APIKey).
		SetRetryCount(c.config.MaxRetries).
		SetRetryWaitTime(c.config.RetryWait).
		SetRetryMaxWaitTime(c.config.RetryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})
}

// BreakerState returns the breaker state name (closed, half-open, open)
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

type listingsResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data []market.RawListing `json:"data"`
}

// Listings fetches the top limit listings by market cap
func (c *Client) Listings(ctx context.Context, limit int) ([]market.RawListing, error) {
	if limit <= 0 {
		limit = 100
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, limit)
	})
	duration := time.Since(start)

	if err != nil {
		c.observe("error", duration)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit %s: %v", ErrProviderUnavailable, c.BreakerState(), err)
		}
		return nil, err
	}
	c.observe("ok", duration)

	listings := out.([]market.RawListing)
	log.Info().
		Str("provider", Name).
		Int("listings", len(listings)).
		Dur("duration", duration).
		Msg("Fetched listings")
	return listings, nil
}

func (c *Client) fetch(ctx context.Context, limit int) ([]market.RawListing, error) {
	var body listingsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start":   "1",
			"limit":   strconv.Itoa(limit),
			"convert": c.config.Convert,
		}).
		SetResult(&body).
		SetError(&body).
		Get(listingsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.IsError() {
		msg := body.Status.ErrorMessage
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode(), msg)
	}
	if body.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("%w: api error %d: %s", ErrProviderUnavailable, body.Status.ErrorCode, body.Status.ErrorMessage)
	}
	return body.Data, nil
}

func (c *Client) observe(status string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(Name, status, d)
	}
}
