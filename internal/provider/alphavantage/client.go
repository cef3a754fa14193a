package alphavantage

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockticker/internal/httpx"
)

const (
	baseURL = "https://www.alphavantage.co"
	name    = "AlphaVantage"
)

// Client is a client for the Alpha Vantage query API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// apiKey is sent as the apikey query parameter.
	apiKey string
	// http performs the requests.
	http *resty.Client
	// now stamps fetched quotes.
	now func() time.Time
	log zerolog.Logger
}

// Option is a configuration option for the Alpha Vantage client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the resty client used for requests.
func WithHTTPClient(hc *resty.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a new Alpha Vantage client.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	if c.http == nil {
		c.http = httpx.New(10*time.Second, "")
	}
	return c
}

func (c *Client) Name() string { return name }

// throttled reports the informational fields Alpha Vantage sends in place of
// data when the key is over quota.
type throttled struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

func (t throttled) limited() bool { return t.Note != "" || t.Information != "" }
