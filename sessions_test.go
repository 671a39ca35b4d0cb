package twitter

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := OpenSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("alice", "tok", "ct0val"); err != nil {
		t.Fatal(err)
	}
	authToken, ct0, err := s.Load("alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if authToken != "tok" || ct0 != "ct0val" {
		t.Fatalf("got (%q, %q)", authToken, ct0)
	}

	if err := s.Delete("alice"); err != nil {
		t.Fatal(err)
	}
	authToken, _, err = s.Load("alice", time.Hour)
	if err != nil || authToken != "" {
		t.Fatalf("expected deleted session, got %q, %v", authToken, err)
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("bob", "tok", "ct0"); err != nil {
		t.Fatal(err)
	}
	authToken, ct0, err := s.Load("bob", -time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if authToken != "" || ct0 != "" {
		t.Fatal("expected expired session to be ignored")
	}
}

func TestSessionStoreNil(t *testing.T) {
	var s *SessionStore
	if err := s.Save("x", "a", "b"); err != nil {
		t.Fatal(err)
	}
	if a, c, err := s.Load("x", time.Hour); a != "" || c != "" || err != nil {
		t.Fatal("nil store must load nothing")
	}
	if err := s.Delete("x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func sessionClient(s *SessionStore) *Client {
	return &Client{cfg: ClientConfig{Sessions: s, SessionTTL: time.Hour}}
}

func TestLoadOrLoginPrefersSuppliedCookies(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("123", "stale-auth", "stale-ct0"); err != nil {
		t.Fatal(err)
	}
	acc, err := NewCookieAccount(map[string]string{
		"auth_token": "fresh-auth",
		"ct0":        "fresh-ct0",
		"twid":       "u%3D123",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := sessionClient(s).loadOrLogin(acc, nil); err != nil {
		t.Fatal(err)
	}
	authToken, ct0, _ := acc.Credentials()
	if authToken != "fresh-auth" || ct0 != "fresh-ct0" {
		t.Fatalf("account credentials = (%q, %q), want the cookie file pair", authToken, ct0)
	}
	authToken, ct0, err = s.Load("123", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if authToken != "fresh-auth" || ct0 != "fresh-ct0" {
		t.Fatalf("stored session = (%q, %q), want it overwritten", authToken, ct0)
	}
}

func TestLoadOrLoginUsesStoreWithoutSuppliedTokens(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("alice", "saved-auth", "saved-ct0"); err != nil {
		t.Fatal(err)
	}
	acc := ParseAccounts("alice:pw")[0]

	if err := sessionClient(s).loadOrLogin(acc, nil); err != nil {
		t.Fatal(err)
	}
	if authToken, ct0, _ := acc.Credentials(); authToken != "saved-auth" || ct0 != "saved-ct0" {
		t.Fatalf("got (%q, %q), want the stored pair", authToken, ct0)
	}
}

func TestReloginCookieOnlyDropsStoredSession(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("cookie", "expired", "ct0"); err != nil {
		t.Fatal(err)
	}
	acc, err := NewCookieAccount(map[string]string{"auth_token": "expired", "ct0": "ct0"})
	if err != nil {
		t.Fatal(err)
	}

	if err := sessionClient(s).relogin(context.Background(), acc); err == nil {
		t.Fatal("expected relogin of a cookie-only account to fail")
	}
	authToken, _, err := s.Load("cookie", time.Hour)
	if err != nil || authToken != "" {
		t.Fatalf("expected stored session removed, got %q, %v", authToken, err)
	}
}
