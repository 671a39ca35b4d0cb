package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

const maxRetries = 3

// ErrRateLimited is returned (wrapped) when an endpoint is throttled for the acting account.
var ErrRateLimited = errors.New("rate limited")

// apiCall describes one logical request to the web API.
type apiCall struct {
	endpoint    string
	method      string
	url         string
	body        []byte
	contentType string

	// acc pins the request to one account; nil rotates through the pool.
	acc *Account

	// mutation calls are never replayed after a transport error or a 429,
	// only after the server rejected them for stale credentials.
	mutation bool
}

// getAs runs a GET pinned to acc (nil rotates the pool).
func (c *Client) getAs(ctx context.Context, acc *Account, endpoint, url string) ([]byte, error) {
	body, _, err := c.execute(ctx, apiCall{endpoint: endpoint, method: "GET", url: url, acc: acc})
	return body, err
}

// mutateGraphQL posts a GraphQL mutation as the primary account.
func (c *Client) mutateGraphQL(ctx context.Context, operation string, variables map[string]any) ([]byte, error) {
	ep, ok := Endpoints[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
	payload := map[string]any{
		"variables": variables,
		"queryId":   ep.ID,
	}
	if ep.Features != nil {
		payload["features"] = ep.Features
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", operation, err)
	}
	body, _, err := c.execute(ctx, apiCall{
		endpoint: operation,
		method:   "POST",
		url:      ep.URL(),
		body:     data,
		acc:      c.primary,
		mutation: true,
	})
	return body, err
}

// postForm posts a form-encoded REST request as the primary account.
func (c *Client) postForm(ctx context.Context, endpoint, url string, form url.Values) ([]byte, error) {
	body, _, err := c.execute(ctx, apiCall{
		endpoint:    endpoint,
		method:      "POST",
		url:         url,
		body:        []byte(form.Encode()),
		contentType: contentForm,
		acc:         c.primary,
		mutation:    true,
	})
	return body, err
}

// execute runs call with account selection, ct0 rotation, relogin and,
// for public reads, a guest-token fallback.
func (c *Client) execute(ctx context.Context, call apiCall) ([]byte, map[string]string, error) {
	// Anti-fingerprint jitter
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			select {
			case <-time.After(stealth.DefaultBackoff.Duration(attempt)):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		acc, err := c.pickAccount(ctx, call)
		if err != nil {
			lastErr = err
			break
		}

		// Proactive ct0 rotation
		if acc.CT0Age() > ct0MaxAge {
			_, oldCT0, _ := acc.Credentials()
			acc.RotateCT0()
			slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username), slog.String("old_prefix", oldCT0[:min(8, len(oldCT0))]))
			c.persist(acc)
		}

		bc := c.clientForAccount(acc)
		body, hdrs, status, err := c.send(bc, acc, call)
		if err != nil {
			if acc.Proxy != "" && isProxyError(err) {
				c.markProxyDown(acc)
			} else {
				acc.RecordFailure()
			}
			if call.mutation {
				return nil, nil, fmt.Errorf("%s: %w", call.endpoint, err)
			}
			lastErr = err
			continue
		}
		acc.resetProxyFailures()

		if status == 429 {
			c.recordAPICall(call.endpoint, false, true)
			acc.MarkEndpointRateLimited(call.endpoint, parseRateLimitReset(hdrs["x-rate-limit-reset"]))
			lastErr = fmt.Errorf("%s: %w (HTTP 429)", call.endpoint, ErrRateLimited)
			if call.mutation {
				return nil, nil, lastErr
			}
			continue
		}

		class := classifyError(body, hdrs)
		if status == 200 && (class == errNone || (class == errInternal && hasResponseData(body))) {
			if class == errInternal {
				slog.Debug("error 131 with usable data, treating as success", slog.String("endpoint", call.endpoint))
			}
			c.succeed(acc, call.endpoint, hdrs)
			return body, hdrs, nil
		}

		if status != 200 && status != 401 && status != 403 {
			c.recordAPICall(call.endpoint, false, false)
			slog.Warn("non-200 response", slog.String("endpoint", call.endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
			if acc.RecordFailure() && call.acc == nil {
				total, failed, consec := acc.Stats()
				slog.Warn("account unhealthy, deactivating",
					slog.String("user", acc.Username),
					slog.Int("total", total),
					slog.Int("failed", failed),
					slog.Int("consec", consec))
				c.pool.DeactivateItem(acc)
			}
			return nil, nil, fmt.Errorf("%s HTTP %d: %s", call.endpoint, status, truncateBytes(body, 200))
		}

		c.recordAPICall(call.endpoint, false, false)
		body, hdrs, err = c.recover(ctx, bc, acc, call, class, status, body)
		if err == nil {
			return body, hdrs, nil
		}
		lastErr = err
		if errors.Is(err, errTerminal) || (call.acc != nil && !recoverable(class)) {
			return nil, nil, err
		}
	}

	if call.acc != nil || call.mutation || requiresAuth(call.endpoint) || call.method != "GET" {
		if lastErr != nil {
			return nil, nil, fmt.Errorf("%s failed: %w", call.endpoint, lastErr)
		}
		return nil, nil, fmt.Errorf("%s requires an authenticated account", call.endpoint)
	}
	body, hdrs, err := c.guestGET(ctx, call.endpoint, call.url)
	if err != nil && lastErr != nil {
		return nil, nil, fmt.Errorf("pool exhausted for %s: %w (guest: %v)", call.endpoint, lastErr, err)
	}
	return body, hdrs, err
}

// errTerminal marks recovery failures that must not be retried with another attempt.
var errTerminal = errors.New("terminal")

// recover reacts to an error class reported by the API. It returns the body of
// a successful re-send, or an error describing why the attempt failed.
func (c *Client) recover(ctx context.Context, bc *stealth.BrowserClient, acc *Account, call apiCall, class errorClass, status int, body []byte) ([]byte, map[string]string, error) {
	switch class {
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username), slog.String("endpoint", call.endpoint))
		acc.RotateCT0()
		c.persist(acc)
		return c.resend(bc, acc, call, "CSRF retry")

	case errAuthExpired:
		slog.Warn("auth expired (code 32), attempting relogin", slog.String("user", acc.Username))
		if err := c.relogin(ctx, acc); err != nil {
			slog.Warn("relogin failed", slog.String("user", acc.Username), slog.Any("error", err))
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
			return nil, nil, err
		}
		return c.resend(bc, acc, call, "post-relogin request")

	case errLocked:
		slog.Warn("account locked (code 326, captcha needed)", slog.String("user", acc.Username))
		if c.cfg.CaptchaSolver != nil && acc.Password != "" {
			slog.Info("attempting CAPTCHA unlock via relogin", slog.String("user", acc.Username))
			err := c.relogin(ctx, acc)
			if err == nil {
				return c.resend(bc, acc, call, "post-CAPTCHA request")
			}
			slog.Warn("CAPTCHA unlock failed", slog.String("user", acc.Username), slog.Any("error", err))
		}
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, nil, fmt.Errorf("account %s locked", acc.Username)

	case errBanned:
		slog.Warn("account banned (code 88)", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, nil, fmt.Errorf("account %s banned", acc.Username)

	case errSuspended:
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		c.pool.DeactivateItem(acc)
		return nil, nil, fmt.Errorf("account %s suspended", acc.Username)

	case errInternal:
		slog.Warn("error 131 without data", slog.String("user", acc.Username), slog.String("endpoint", call.endpoint))
		if call.mutation {
			return nil, nil, fmt.Errorf("%w: Twitter internal error (131)", errTerminal)
		}
		return nil, nil, fmt.Errorf("Twitter internal error (131)")

	case errBlocked, errNotAuthorized:
		slog.Warn("account error", slog.String("user", acc.Username), slog.Int("class", int(class)))
		if call.acc == nil {
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
			return nil, nil, fmt.Errorf("account error class %d", class)
		}
		return nil, nil, fmt.Errorf("%w: %s not permitted: %s", errTerminal, call.endpoint, apiErrorMessage(body))
	}

	acc.RecordFailure()
	return nil, nil, fmt.Errorf("%w: %s HTTP %d: %s", errTerminal, call.endpoint, status, truncateBytes(body, 200))
}

// recoverable reports whether another attempt with the same account can succeed.
func recoverable(class errorClass) bool {
	return class == errCSRF || class == errAuthExpired || class == errInternal
}

// resend repeats call once with the account's current credentials.
func (c *Client) resend(bc *stealth.BrowserClient, acc *Account, call apiCall, what string) ([]byte, map[string]string, error) {
	body, hdrs, status, err := c.send(bc, acc, call)
	if err == nil && (status == 200 || status == 201) && classifyError(body, hdrs) == errNone {
		c.succeed(acc, call.endpoint, hdrs)
		return body, hdrs, nil
	}
	acc.RecordFailure()
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", what, err)
	}
	return nil, nil, fmt.Errorf("%s failed: HTTP %d", what, status)
}

// send performs one HTTP exchange for call as acc.
func (c *Client) send(bc *stealth.BrowserClient, acc *Account, call apiCall) ([]byte, map[string]string, int, error) {
	authTok, ct0, ua := acc.Credentials()
	return c.doRequest(bc, call.method, call.url, twitterHeaders(authTok, ct0, ua, call.contentType), call.body)
}

// succeed records a successful exchange and adopts a server-issued ct0.
func (c *Client) succeed(acc *Account, endpoint string, hdrs map[string]string) {
	_, ct0, _ := acc.Credentials()
	if newCT0 := extractCT0FromHeaders(hdrs); newCT0 != "" && newCT0 != ct0 {
		acc.SetCT0(newCT0)
		c.persist(acc)
	}
	c.recordAPICall(endpoint, true, false)
	acc.RecordSuccess()
}

// persist saves the account's current credentials, logging failures.
func (c *Client) persist(acc *Account) {
	authTok, ct0, _ := acc.Credentials()
	if err := c.cfg.Sessions.Save(acc.Username, authTok, ct0); err != nil {
		slog.Warn("session save failed", slog.String("user", acc.Username), slog.Any("error", err))
	}
}

// pickAccount returns the pinned account or the next usable pool member.
func (c *Client) pickAccount(ctx context.Context, call apiCall) (*Account, error) {
	if call.acc != nil {
		if !call.acc.AllowRequest(call.endpoint) {
			return nil, fmt.Errorf("%s: %w until %s", call.endpoint, ErrRateLimited,
				call.acc.EndpointAvailableAt(call.endpoint).Format(time.RFC3339))
		}
		return call.acc, nil
	}
	filter := func(a *Account) bool {
		return a.AllowRequest(call.endpoint) && a.proxyReady()
	}
	if requiresAuth(call.endpoint) {
		return c.pool.NextWithWait(ctx, filter, 5*time.Minute)
	}
	return c.pool.Next(filter)
}

// guestGET fetches a public endpoint with a guest token.
func (c *Client) guestGET(ctx context.Context, endpoint, url string) ([]byte, map[string]string, error) {
	gt, ok := c.getGuestTokenCached()
	if !ok {
		token, err := c.acquireGuestToken(ctx, c.client)
		if err != nil {
			return nil, nil, fmt.Errorf("guest token unavailable for %s: %w", endpoint, err)
		}
		c.setGuestToken(token)
		gt = token
		slog.Info("guest token acquired as fallback", slog.String("endpoint", endpoint))
	}

	for attempt := 0; attempt < 2; attempt++ {
		body, hdrs, status, err := c.doRequest(c.client, "GET", url, guestHeaders(gt), nil)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case status == 200:
			c.recordAPICall(endpoint, true, false)
			return body, hdrs, nil
		case status == 429:
			c.recordAPICall(endpoint, false, true)
			c.markGuestTokenRateLimited(parseRateLimitReset(hdrs["x-rate-limit-reset"]))
			return nil, nil, fmt.Errorf("guest token for %s: %w", endpoint, ErrRateLimited)
		case (status == 401 || status == 403) && attempt == 0:
			slog.Warn("guest token expired, reacquiring", slog.String("endpoint", endpoint), slog.Int("status", status))
			c.setGuestToken("")
			newGT, err := c.acquireGuestToken(ctx, c.client)
			if err != nil {
				c.recordAPICall(endpoint, false, false)
				return nil, nil, fmt.Errorf("guest token reacquisition failed for %s: %w", endpoint, err)
			}
			c.setGuestToken(newGT)
			gt = newGT
		default:
			c.recordAPICall(endpoint, false, false)
			return nil, nil, fmt.Errorf("%s (guest) HTTP %d: %s", endpoint, status, truncateBytes(body, 200))
		}
	}
	return nil, nil, fmt.Errorf("%s (guest): retries exhausted", endpoint)
}

// requiresAuth returns true for endpoints that need a real authenticated account.
func requiresAuth(endpoint string) bool {
	switch endpoint {
	case "UserByScreenName", "UserTweets", "TweetDetail":
		return false
	}
	return true
}

// isProxyError returns true if the error looks like a proxy connectivity failure.
func isProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"proxy", "SOCKS", "tunnel", "connection refused", "no such host"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// markProxyDown applies exponential backoff for proxy failures.
func (c *Client) markProxyDown(acc *Account) {
	acc.mu.Lock()
	acc.proxyConsecFails++
	fails := acc.proxyConsecFails
	duration := stealth.BackoffConfig{
		InitialWait: c.cfg.ProxyBackoffInitial,
		MaxWait:     c.cfg.ProxyBackoffMax,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}.Duration(fails - 1)
	acc.proxyBackoff = time.Now().Add(duration)
	acc.mu.Unlock()

	slog.Warn("proxy down, backing off",
		slog.String("user", acc.Username),
		slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
		slog.Int("consec_fails", fails),
		slog.Duration("backoff", duration))
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}

// addGraphQLParams builds the full URL with variables, features, and optional fieldToggles.
func addGraphQLParams(url string, variables, features map[string]any, fieldToggles ...map[string]any) string {
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(features)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	result := url + sep + "variables=" + jsonEscape(v) + "&features=" + jsonEscape(f)
	if len(fieldToggles) > 0 && fieldToggles[0] != nil {
		ft, _ := json.Marshal(fieldToggles[0])
		result += "&fieldToggles=" + jsonEscape(ft)
	}
	return result
}

var queryEscaper = strings.NewReplacer(
	"%", "%25", " ", "%20", `"`, "%22", "{", "%7B", "}", "%7D", "[", "%5B", "]", "%5D",
	":", "%3A", ",", "%2C", "'", "%27", "|", "%7C", "#", "%23", "&", "%26",
	"+", "%2B", "?", "%3F", "=", "%3D",
)

// jsonEscape percent-encodes the characters of a JSON document that are not
// safe inside a query-string value.
func jsonEscape(b []byte) string {
	return queryEscaper.Replace(string(b))
}
