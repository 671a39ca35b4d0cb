package xtid

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const homeURL = "https://x.com"

// Fetcher downloads a page body.
type Fetcher func(url string) (string, error)

// Manager keeps a Transaction fresh, reloading key material every
// RefreshInterval and falling back to the previous keys when a reload fails.
type Manager struct {
	RefreshInterval time.Duration

	fetch Fetcher

	mu        sync.RWMutex
	tx        *Transaction
	refreshed time.Time
}

// NewManager returns a Manager that loads pages with fetch, or with a plain
// net/http client when fetch is nil.
func NewManager(fetch Fetcher) *Manager {
	if fetch == nil {
		fetch = httpFetcher(&http.Client{Timeout: 30 * time.Second})
	}
	return &Manager{RefreshInterval: 30 * time.Minute, fetch: fetch}
}

// Initialize loads the home page and its ondemand script and rebuilds the keys.
func (m *Manager) Initialize() error {
	html, err := m.fetch(homeURL)
	if err != nil {
		return fmt.Errorf("fetch home page: %w", err)
	}
	jsURL := ondemandURL(html)
	if jsURL == "" {
		return errors.New("ondemand.s reference not found in home page")
	}
	js, err := m.fetch(jsURL)
	if err != nil {
		return fmt.Errorf("fetch ondemand script: %w", err)
	}
	tx, err := NewTransaction(html, js)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.tx, m.refreshed = tx, time.Now()
	m.mu.Unlock()
	slog.Info("xtid: keys loaded", slog.String("animation", tx.animation[:min(8, len(tx.animation))]+"..."))
	return nil
}

// GenerateID returns a transaction id, refreshing stale keys first.
func (m *Manager) GenerateID(method, path string) (string, error) {
	m.mu.RLock()
	tx, stale := m.tx, m.tx == nil || time.Since(m.refreshed) > m.RefreshInterval
	m.mu.RUnlock()

	if stale {
		if err := m.Initialize(); err != nil {
			if tx == nil {
				return "", fmt.Errorf("xtid: %w", err)
			}
			slog.Warn("xtid: refresh failed, using stale keys", slog.Any("error", err))
		}
		m.mu.RLock()
		tx = m.tx
		m.mu.RUnlock()
	}
	return tx.GenerateID(method, path), nil
}

func httpFetcher(client *http.Client) Fetcher {
	return func(url string) (string, error) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
		}
		body, err := io.ReadAll(resp.Body)
		return string(body), err
	}
}
