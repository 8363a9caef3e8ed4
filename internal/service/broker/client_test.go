package broker

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

const chainBody = `{
  "s": "ok", "code": 200,
  "data": {"optionsChain": [
    {"strike_price": -1, "option_type": "", "ltp": 22510.5, "oi": 0, "volume": 0},
    {"strike_price": 22550, "option_type": "PE", "oi": 900, "oich": "-20", "volume": 300, "ltp": 80.5, "iv": 13.1, "expiry": "1772668800"},
    {"strike_price": 22500, "option_type": "CE", "oi": 1000, "oich": 50, "volume": 500, "ltp": 120.25, "expiry": "1772668800"},
    {"strike_price": 22500, "option_type": "PE", "oi": 1100, "oich": 10, "volume": 450, "ltp": 95},
    {"strike_price": 22550, "option_type": "CE", "oi": "n/a", "oich": 5, "volume": 100, "ltp": 90}
  ]}
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []ClientOption{
		WithBaseURL(srv.URL),
		WithCredentials("APP-100", "token"),
		WithRetries(2, time.Millisecond),
		WithRateLimit(1000, 100),
	}
	c, err := NewClient(append(base, opts...)...)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC) }
	return c
}

func TestFetchOptionChainCleansRows(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, chainPath, r.URL.Path)
		assert.Equal(t, "NSE:NIFTY50-INDEX", r.URL.Query().Get("symbol"))
		assert.Equal(t, "40", r.URL.Query().Get("strikecount"))
		assert.Equal(t, "APP-100:token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(chainBody))
	}, WithLocation(ist))

	rows, err := c.FetchOptionChain(context.Background(), "NSE:NIFTY50-INDEX")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 22500.0, rows[0].StrikePrice)
	assert.Equal(t, models.CE, rows[0].OptionType)
	assert.Equal(t, "1772668800", rows[0].Expiry)
	assert.Equal(t, models.PE, rows[1].OptionType)
	assert.Equal(t, 22550.0, rows[2].StrikePrice)
	assert.Equal(t, -20.0, rows[2].OIChange)
	require.NotNil(t, rows[2].IV)
	assert.InDelta(t, 13.1, *rows[2].IV, 1e-9)
	assert.Nil(t, rows[0].IV)

	assert.Equal(t, "IST", rows[0].SnapshotTime.Location().String())
	assert.Equal(t, 10, rows[0].SnapshotTime.Hour())
}

func TestFetchOptionChainNoExpiry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"error","code":-470,"message":"no expiry"}`))
	})

	_, err := c.FetchOptionChain(context.Background(), "NSE:FINNIFTY-INDEX")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoExpiry)
}

func TestFetchOptionChainAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"error","code":-16,"message":"token expired"}`))
	})

	_, err := c.FetchOptionChain(context.Background(), "NSE:NIFTY50-INDEX")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, -16, apiErr.Code)
}

func TestFetchSpotPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, quotesPath, r.URL.Path)
		assert.Equal(t, "NSE:NIFTY50-INDEX", r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"n":"NSE:NIFTY50-INDEX","s":"ok","v":{"last_price":"22512.35"}}]}`))
	})

	spot, err := c.FetchSpotPrice(context.Background(), "NSE:NIFTY50-INDEX")
	require.NoError(t, err)
	assert.InDelta(t, 22512.35, spot, 1e-9)
}

func TestFetchSpotPriceMissingField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"v":{"ch":1.2}}]}`))
	})
	_, err := c.FetchSpotPrice(context.Background(), "NSE:NIFTY50-INDEX")
	assert.ErrorContains(t, err, "spot price field not found")
}

func TestRetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"v":{"lp":22500}}]}`))
	})

	spot, err := c.FetchSpotPrice(context.Background(), "NSE:NIFTY50-INDEX")
	require.NoError(t, err)
	assert.Equal(t, 22500.0, spot)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.FetchSpotPrice(context.Background(), "NSE:NIFTY50-INDEX")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetries(0, time.Millisecond), WithBreaker(2, time.Minute))

	for range 2 {
		_, err := c.FetchSpotPrice(context.Background(), "X")
		require.Error(t, err)
	}
	_, err := c.FetchSpotPrice(context.Background(), "X")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNumberDecoding(t *testing.T) {
	var n number
	require.NoError(t, n.UnmarshalJSON([]byte(`"12.5"`)))
	assert.Equal(t, 12.5, float64(n))
	require.NoError(t, n.UnmarshalJSON([]byte(`"-"`)))
	assert.True(t, math.IsNaN(float64(n)))
	require.NoError(t, n.UnmarshalJSON([]byte(`7`)))
	assert.Equal(t, 7.0, float64(n))
}
