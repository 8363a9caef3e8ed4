package broker

import (
	"time"

	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

// ClientOption configures the broker client.
type ClientOption func(*ClientConfig)

type ClientConfig struct {
	BaseURL      string
	ClientID     string
	AccessToken  string
	StrikeCount  int
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	MaxRetries   int
	RetryBackoff time.Duration
	BreakerFails uint32
	BreakerReset time.Duration
	Location     *time.Location
	Logger       *applogger.Logger
}

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "https://api-t1.fyers.in/data",
		StrikeCount:  40,
		Timeout:      10 * time.Second,
		RatePerSec:   5,
		Burst:        5,
		MaxRetries:   2,
		RetryBackoff: 300 * time.Millisecond,
		BreakerFails: 5,
		BreakerReset: 30 * time.Second,
		Location:     time.UTC,
	}
}

func WithBaseURL(u string) ClientOption {
	return func(c *ClientConfig) {
		if u != "" {
			c.BaseURL = u
		}
	}
}

// WithCredentials sets the app id and the daily access token.
func WithCredentials(clientID, accessToken string) ClientOption {
	return func(c *ClientConfig) {
		c.ClientID = clientID
		c.AccessToken = accessToken
	}
}

// WithStrikeCount sets how many strikes around ATM are requested.
func WithStrikeCount(n int) ClientOption {
	return func(c *ClientConfig) {
		if n > 0 {
			c.StrikeCount = n
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func WithRateLimit(perSec float64, burst int) ClientOption {
	return func(c *ClientConfig) {
		c.RatePerSec = perSec
		c.Burst = burst
	}
}

// WithRetries sets retries for temporary failures; backoff doubles per attempt.
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if n >= 0 {
			c.MaxRetries = n
		}
		if backoff > 0 {
			c.RetryBackoff = backoff
		}
	}
}

// WithBreaker trips after fails consecutive failures and retries once reset has elapsed.
func WithBreaker(fails uint32, reset time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if fails > 0 {
			c.BreakerFails = fails
		}
		if reset > 0 {
			c.BreakerReset = reset
		}
	}
}

// WithLocation sets the zone used to stamp fetched snapshots.
func WithLocation(loc *time.Location) ClientOption {
	return func(c *ClientConfig) {
		if loc != nil {
			c.Location = loc
		}
	}
}

func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = l
	}
}
