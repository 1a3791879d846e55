// Package rates quotes course prices in ETH using a coinbase compatible spot
// price endpoint.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrNoRate = errors.New("rates: no quote available")

// failTTL is how long a failed fetch is answered from memory.
const failTTL = 10 * time.Second

type spot struct {
	Data struct {
		Amount   decimal.Decimal `json:"amount"`
		Base     string          `json:"base"`
		Currency string          `json:"currency"`
	} `json:"data"`
}

type Client struct {
	http  *resty.Client
	ttl   time.Duration
	group singleflight.Group

	mu       sync.Mutex
	rate     decimal.Decimal
	fetched  time.Time
	lastErr  error
	failedAt time.Time
}

func New(baseURL string, timeout, ttl time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: c, ttl: ttl}
}

func (c *Client) cached() (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetched.IsZero() && time.Since(c.fetched) < c.ttl {
		return c.rate, true, nil
	}
	if c.lastErr != nil && time.Since(c.failedAt) < failTTL {
		return decimal.Zero, true, c.lastErr
	}
	return decimal.Zero, false, nil
}

// ETHUSD returns the USD price of one ETH, cached for the configured TTL.
// Concurrent misses share one upstream request.
func (c *Client) ETHUSD(ctx context.Context) (decimal.Decimal, error) {
	if r, ok, err := c.cached(); ok {
		return r, err
	}

	ch := c.group.DoChan("ETH-USD", func() (any, error) {
		r, err := c.fetch(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.lastErr, c.failedAt = err, time.Now()
			return nil, err
		}
		c.rate, c.fetched, c.lastErr = r, time.Now(), nil
		return r, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	var res spot
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		Get("/v2/prices/ETH-USD/spot")
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching ETH-USD spot price: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("fetching ETH-USD spot price: status %d", resp.StatusCode())
	}
	if !res.Data.Amount.IsPositive() {
		return decimal.Zero, ErrNoRate
	}
	return res.Data.Amount, nil
}

// ToETH converts a USD cent amount to ETH rounded to 6 decimals.
func (c *Client) ToETH(ctx context.Context, cents int) (decimal.Decimal, error) {
	r, err := c.ETHUSD(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Decimal(cents).DivRound(r, 6), nil
}
