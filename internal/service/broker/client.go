package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/service/ratelimit"
	xhttp "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/http"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

const (
	quotesPath = "/quotes"
	chainPath  = "/options-chain-v3"

	// codeNoExpiry is returned when the symbol has no listed expiry.
	codeNoExpiry = -470
)

var (
	ErrNoExpiry   = fmt.Errorf("broker: no expiry contracts available: %w", domrepo.ErrNoChainData)
	ErrEmptyChain = fmt.Errorf("broker: empty option chain: %w", domrepo.ErrNoChainData)
)

// APIError is a non-ok envelope returned with HTTP 200.
type APIError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker %s: code %d: %s", e.Endpoint, e.Code, e.Message)
}

// Client fetches spot quotes and option chains from the Fyers data REST API.
// Every call goes through a per-endpoint rate limiter and a shared circuit
// breaker; temporary failures are retried with doubling backoff.
type Client struct {
	http        *xhttp.Client
	baseURL     string
	authHeader  string
	strikeCount int
	limiter     *ratelimit.Limiter
	breaker     *gobreaker.CircuitBreaker
	maxRetries  int
	backoff     time.Duration
	loc         *time.Location
	now         func() time.Time
	l           *applogger.Logger
}

var _ domrepo.ChainSource = (*Client)(nil)

func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("broker base url: %w", err)
	}
	l := cfg.Logger
	if l == nil {
		l = applogger.Nop()
	}

	c := &Client{
		http:        xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		baseURL:     cfg.BaseURL,
		strikeCount: cfg.StrikeCount,
		limiter:     ratelimit.New(cfg.RatePerSec, cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.RetryBackoff,
		loc:         cfg.Location,
		now:         time.Now,
		l:           l,
	}
	if cfg.ClientID != "" || cfg.AccessToken != "" {
		c.authHeader = cfg.ClientID + ":" + cfg.AccessToken
	}

	fails := cfg.BreakerFails
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "broker",
		Timeout: cfg.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= fails
		},
		// 4xx answers mean a bad request or token, not a broker outage.
		IsSuccessful: func(err error) bool {
			var se *xhttp.StatusError
			return err == nil || (errors.As(err, &se) && !se.Temporary())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("broker circuit state changed",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// FetchSpotPrice returns the last traded price of the index.
func (c *Client) FetchSpotPrice(ctx context.Context, symbol string) (float64, error) {
	var resp quotesResponse
	err := c.call(ctx, "quotes", quotesPath, map[string][]string{"symbols": {symbol}}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.S != "ok" {
		return 0, &APIError{Endpoint: "quotes", Code: resp.Code, Message: resp.Message}
	}
	if len(resp.D) == 0 {
		return 0, fmt.Errorf("broker quotes %s: empty response", symbol)
	}

	v := resp.D[0].V
	for _, key := range []string{"lp", "last_price"} {
		raw, ok := v[key]
		if !ok {
			continue
		}
		var n number
		if err := json.Unmarshal(raw, &n); err == nil && !math.IsNaN(float64(n)) {
			return float64(n), nil
		}
	}
	return 0, fmt.Errorf("broker quotes %s: spot price field not found", symbol)
}

// FetchOptionChain returns the cleaned chain sorted by strike then side.
// Rows missing strike, side, open interest, volume or LTP are dropped, as
// is the underlying row (strike -1). ErrNoExpiry is returned when the
// broker lists no contracts for the symbol.
func (c *Client) FetchOptionChain(ctx context.Context, symbol string) ([]models.ChainRow, error) {
	params := map[string][]string{
		"symbol":      {symbol},
		"strikecount": {strconv.Itoa(c.strikeCount)},
		"timestamp":   {""},
	}

	var resp chainResponse
	if err := c.call(ctx, "optionchain", chainPath, params, &resp); err != nil {
		return nil, err
	}
	if resp.S != "ok" {
		if resp.Code == codeNoExpiry {
			return nil, fmt.Errorf("broker optionchain %s: %w", symbol, ErrNoExpiry)
		}
		return nil, &APIError{Endpoint: "optionchain", Code: resp.Code, Message: resp.Message}
	}
	if len(resp.Data.OptionsChain) == 0 {
		return nil, fmt.Errorf("broker optionchain %s: %w", symbol, ErrEmptyChain)
	}

	snapshotTime := c.now().In(c.loc)
	rows := make([]models.ChainRow, 0, len(resp.Data.OptionsChain))
	for _, e := range resp.Data.OptionsChain {
		side, ok := models.ParseOptionType(e.OptionType)
		if !ok {
			continue
		}
		row := models.ChainRow{
			Symbol:       symbol,
			StrikePrice:  value(e.StrikePrice),
			OptionType:   side,
			OpenInterest: value(e.OI),
			OIChange:     value(e.OIChange),
			Volume:       value(e.Volume),
			LTP:          value(e.LTP),
			IV:           e.iv(),
			Expiry:       e.expiry(),
			SnapshotTime: snapshotTime,
		}
		if anyNaN(row.StrikePrice, row.OpenInterest, row.Volume, row.LTP) || row.StrikePrice == -1 {
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StrikePrice != rows[j].StrikePrice {
			return rows[i].StrikePrice < rows[j].StrikePrice
		}
		return rows[i].OptionType < rows[j].OptionType
	})

	c.l.Debug("broker option chain fetched",
		applogger.String("symbol", symbol),
		applogger.Int("raw", len(resp.Data.OptionsChain)),
		applogger.Int("rows", len(rows)),
	)
	return rows, nil
}

func (c *Client) call(ctx context.Context, endpoint, path string, params map[string][]string, dest interface{}) error {
	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: params,
		Headers:     map[string]string{"Accept": "application/json"},
	}
	if c.authHeader != "" {
		opts.Headers["Authorization"] = c.authHeader
	}

	backoff := c.backoff
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.l.Warn("broker request retry",
				applogger.String("endpoint", endpoint),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err = c.limiter.Wait(ctx, endpoint); err != nil {
			return fmt.Errorf("broker %s rate limit: %w", endpoint, err)
		}
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, c.http.SendAndParse(ctx, opts, dest)
		})
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("broker %s: %w", endpoint, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
