package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://api.capsolver.com"
	lowBalance      = 5.0
)

// Capsolver solves challenges through api.capsolver.com.
type Capsolver struct {
	apiKey   string
	endpoint string
	http     *http.Client

	PollInterval time.Duration
	Timeout      time.Duration
}

// NewCapsolver creates a client for the given API key.
func NewCapsolver(apiKey string) *Capsolver {
	return &Capsolver{
		apiKey:       apiKey,
		endpoint:     defaultEndpoint,
		http:         &http.Client{Timeout: 10 * time.Second},
		PollInterval: 3 * time.Second,
		Timeout:      2 * time.Minute,
	}
}

type taskResponse struct {
	ErrorID          int     `json:"errorId"`
	ErrorCode        string  `json:"errorCode"`
	ErrorDescription string  `json:"errorDescription"`
	TaskID           string  `json:"taskId"`
	Status           string  `json:"status"`
	Balance          float64 `json:"balance"`
	Solution         struct {
		Token string `json:"token"`
	} `json:"solution"`
}

func (r *taskResponse) err(op string) error {
	if r.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("capsolver %s: %s: %s", op, r.ErrorCode, r.ErrorDescription)
}

// Solve creates a FunCaptcha task and polls until it is ready.
func (c *Capsolver) Solve(ctx context.Context, ch Challenge) (string, error) {
	if bal, err := c.Balance(ctx); err == nil && bal < lowBalance {
		slog.Warn("capsolver balance low", slog.Float64("balance", bal))
	}

	var created taskResponse
	err := c.call(ctx, "/createTask", map[string]any{
		"clientKey": c.apiKey,
		"task": map[string]any{
			"type":             "FunCaptchaTaskProxyLess",
			"websiteURL":       ch.PageURL,
			"websitePublicKey": ch.SiteKey,
		},
	}, &created)
	if err != nil {
		return "", err
	}
	if err := created.err("createTask"); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", fmt.Errorf("capsolver createTask: empty taskId")
	}
	slog.Info("captcha task created", slog.String("task_id", created.TaskID))

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	for {
		var res taskResponse
		if err := c.call(ctx, "/getTaskResult", map[string]any{
			"clientKey": c.apiKey,
			"taskId":    created.TaskID,
		}, &res); err != nil {
			return "", err
		}
		if err := res.err("getTaskResult"); err != nil {
			return "", err
		}

		switch res.Status {
		case "ready":
			if res.Solution.Token == "" {
				return "", fmt.Errorf("capsolver: ready but empty token")
			}
			return res.Solution.Token, nil
		case "idle", "processing":
		default:
			return "", fmt.Errorf("capsolver: unexpected status %q", res.Status)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("capsolver task %s: %w", created.TaskID, ctx.Err())
		case <-time.After(c.PollInterval):
		}
	}
}

// Balance returns the account balance in USD.
func (c *Capsolver) Balance(ctx context.Context) (float64, error) {
	var res taskResponse
	if err := c.call(ctx, "/getBalance", map[string]any{"clientKey": c.apiKey}, &res); err != nil {
		return 0, err
	}
	return res.Balance, res.err("getBalance")
}

func (c *Capsolver) call(ctx context.Context, path string, payload any, out *taskResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("capsolver %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("capsolver %s HTTP %d: %s", path, resp.StatusCode, data[:min(200, len(data))])
	}
	return json.Unmarshal(data, out)
}
