package twitter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/anatolykoptev/go-twitter-proxy/xtid"
)

// Client is the Twitter web-API client the proxy acts through.
type Client struct {
	client  *stealth.BrowserClient
	pool    *pool.Pool[*Account]
	primary *Account
	xtidMgr *xtid.Manager
	cfg     ClientConfig

	mu                sync.Mutex
	guestToken        string
	guestLimitedUntil time.Time
	viewerUserID      string
}

// NewClient creates a fully-wired Twitter client and logs in every account.
// The first account must end up with a usable session.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.defaults()
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}

	for _, acc := range cfg.Accounts {
		acc.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
		acc.HealthTracker = pool.DefaultHealthTracker()
	}

	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(twitterHeaderOrder),
	}
	if cfg.DefaultProxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.DefaultProxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	c := &Client{
		client:  bc,
		primary: cfg.Accounts[0],
		cfg:     cfg,
	}

	if !cfg.SkipTransactionID {
		c.xtidMgr = xtid.NewManager(c.fetchPage)
		if err := c.xtidMgr.Initialize(); err != nil {
			slog.Warn("xtid: init failed, x-client-transaction-id will be missing", slog.Any("error", err))
		}
	}

	c.pool = pool.New(cfg.Accounts, pool.Config{
		AlertHook: func(topic string, payload any) {
			slog.Warn("pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
		ProxyBackoff: pool.BackoffConfig{
			InitialWait: cfg.ProxyBackoffInitial,
			MaxWait:     cfg.ProxyBackoffMax,
			Multiplier:  2.0,
			JitterPct:   0.3,
		},
	})

	for _, acc := range cfg.Accounts {
		if acc.Proxy != "" {
			accClient, err := stealth.NewClient(
				stealth.WithProxy(acc.Proxy),
				stealth.WithProfile(acc.Profile.TLSProfile),
				stealth.WithHeaderOrder(twitterHeaderOrder),
			)
			if err != nil {
				slog.Warn("per-account client failed", slog.String("user", acc.Username), slog.Any("error", err))
			} else {
				acc.client = accClient
			}
		}

		if err := c.loadOrLogin(acc, c.clientForAccount(acc)); err != nil {
			if acc == c.primary {
				return nil, fmt.Errorf("primary account %s: %w", acc.Username, err)
			}
			slog.Warn("account login failed", slog.String("user", acc.Username), slog.Any("error", err))
			acc.SetActive(false)
		}
	}

	return c, nil
}

// Primary returns the account personal endpoints and mutations run as.
func (c *Client) Primary() *Account {
	return c.primary
}

// clientForAccount returns the per-account client if available, otherwise the shared client.
func (c *Client) clientForAccount(acc *Account) *stealth.BrowserClient {
	if acc.client != nil {
		return acc.client
	}
	return c.client
}

// doRequest executes one HTTP exchange, injecting x-client-transaction-id.
func (c *Client) doRequest(bc *stealth.BrowserClient, method, urlStr string, headers map[string]string, body []byte) ([]byte, map[string]string, int, error) {
	if c.xtidMgr != nil {
		urlPath := urlStr
		if u, parseErr := url.Parse(urlStr); parseErr == nil {
			urlPath = u.Path
		}
		if txID, txErr := c.xtidMgr.GenerateID(method, urlPath); txErr == nil {
			headers["x-client-transaction-id"] = txID
		} else {
			slog.Debug("xtid: failed to generate transaction id", slog.Any("error", txErr))
		}
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return bc.DoWithHeaderOrder(method, urlStr, headers, r, twitterHeaderOrder)
}

// fetchPage downloads an x.com page for the transaction-id key material.
func (c *Client) fetchPage(pageURL string) (string, error) {
	body, _, status, err := c.client.DoWithHeaderOrder("GET", pageURL, pageHeaders(), nil, twitterHeaderOrder)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("HTTP %d for %s", status, pageURL)
	}
	return string(body), nil
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}

// setGuestToken stores a fresh guest token.
func (c *Client) setGuestToken(token string) {
	c.mu.Lock()
	c.guestToken = token
	c.guestLimitedUntil = time.Time{}
	c.mu.Unlock()
}

// markGuestTokenRateLimited marks the guest token as rate-limited.
func (c *Client) markGuestTokenRateLimited(until time.Time) {
	c.mu.Lock()
	c.guestLimitedUntil = until
	c.mu.Unlock()
}

// getGuestTokenCached returns the current guest token and whether it is usable.
func (c *Client) getGuestTokenCached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guestToken == "" || time.Now().Before(c.guestLimitedUntil) {
		return "", false
	}
	return c.guestToken, true
}
