package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSolver(t *testing.T, h http.HandlerFunc) *Capsolver {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewCapsolver("key")
	c.endpoint = srv.URL
	c.PollInterval = time.Millisecond
	c.Timeout = time.Second
	return c
}

func TestCapsolverSolve(t *testing.T) {
	var polls atomic.Int32
	c := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "key", req["clientKey"])

		switch r.URL.Path {
		case "/getBalance":
			w.Write([]byte(`{"errorId":0,"balance":12.5}`))
		case "/createTask":
			task := req["task"].(map[string]any)
			assert.Equal(t, "PUBKEY", task["websitePublicKey"])
			assert.Equal(t, "https://x.com", task["websiteURL"])
			w.Write([]byte(`{"errorId":0,"taskId":"t-1"}`))
		case "/getTaskResult":
			assert.Equal(t, "t-1", req["taskId"])
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"errorId":0,"status":"processing"}`))
				return
			}
			w.Write([]byte(`{"errorId":0,"status":"ready","solution":{"token":"tok"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	token, err := c.Solve(context.Background(), Challenge{SiteKey: "PUBKEY", PageURL: "https://x.com"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.EqualValues(t, 2, polls.Load())
}

func TestCapsolverCreateTaskError(t *testing.T) {
	c := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/createTask" {
			w.Write([]byte(`{"errorId":1,"errorCode":"ERROR_KEY_DENIED_ACCESS","errorDescription":"bad key"}`))
			return
		}
		w.Write([]byte(`{"errorId":0,"balance":100}`))
	})

	_, err := c.Solve(context.Background(), Challenge{SiteKey: "k", PageURL: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR_KEY_DENIED_ACCESS")
}

func TestCapsolverBalanceHTTPError(t *testing.T) {
	c := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream"))
	})

	_, err := c.Balance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(""))
	assert.NotNil(t, New("abc"))
}
