package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/service"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

// stubClient implements the calls these tests need; anything else panics
// through the embedded nil interface.
type stubClient struct {
	service.Capability

	mu       sync.Mutex
	drafts   []twitter.TweetDraft
	liked    []string
	sent     []string
	seen     []string
	cursor   string
	count    int
	likeErr  error
	timeline []*twitter.Tweet
	tweets   map[string]*twitter.Tweet
}

func (s *stubClient) CreateTweet(_ context.Context, d twitter.TweetDraft) (*twitter.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, d)
	return &twitter.Tweet{ID: "900", Text: d.Text}, nil
}

func (s *stubClient) UploadMedia(_ context.Context, path string) (string, error) {
	return "m-" + path, nil
}

func (s *stubClient) CreateMediaMetadata(context.Context, string, string) error { return nil }

func (s *stubClient) FavoriteTweet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = append(s.liked, id)
	return s.likeErr
}

func (s *stubClient) SendDM(_ context.Context, uid, text string) (*twitter.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, uid+":"+text)
	return &twitter.Message{ID: "1", Text: text}, nil
}

func (s *stubClient) Bookmarks(context.Context, int) ([]*twitter.Tweet, error) {
	return nil, nil
}

func (s *stubClient) HomeLatestTimeline(_ context.Context, count int, seen []string, cursor string) (*twitter.TweetPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count, s.seen, s.cursor = count, seen, cursor
	return &twitter.TweetPage{Tweets: s.timeline, NextCursor: "c2"}, nil
}

func (s *stubClient) GetTweetByID(_ context.Context, id string) (*twitter.Tweet, error) {
	t, ok := s.tweets[id]
	if !ok {
		return nil, errors.Errorf("tweet %s not found", id)
	}
	return t, nil
}

func newTestServer(t *testing.T, client *stubClient) (*Server, *bytes.Buffer) {
	t.Helper()
	setupGinTestMode()
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	return New(service.New(client), log, ":0"), &logs
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{})
	w := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv, logs := newTestServer(t, &stubClient{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Contains(t, logs.String(), `"request_id":"abc-123"`)
	assert.Contains(t, logs.String(), `"route":"/healthz"`)
}

func TestCreateTweet(t *testing.T) {
	client := &stubClient{}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodPost, "/tweet", map[string]string{
		"content":        "hello",
		"image_path2":    "b.png",
		"alt_text2":      "second",
		"reply_to":       "5",
		"attachment_url": "https://x.com/a/status/1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"response": map[string]any{"id": "900", "text": "hello"}}, decode(t, w))

	require.Len(t, client.drafts, 1)
	assert.Equal(t, "https://x.com/a/status/1", client.drafts[0].AttachmentURL)
	assert.Empty(t, client.drafts[0].ReplyTo)
	assert.Equal(t, []string{"m-b.png"}, client.drafts[0].MediaIDs)
}

func TestCreateTweet_MissingContent(t *testing.T) {
	client := &stubClient{}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodPost, "/tweet", map[string]string{"reply_to": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{
		"error": "Content is required to create a tweet",
		"kind":  "validation",
	}, decode(t, w))
	assert.Empty(t, client.drafts)
}

func TestCreateTweet_BadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{})
	req := httptest.NewRequest(http.MethodPost, "/tweet", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLike(t *testing.T) {
	client := &stubClient{}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodPost, "/like/42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"response": "Tweet liked successfully"}, decode(t, w))
	assert.Equal(t, []string{"42"}, client.liked)
}

func TestLike_OperationError(t *testing.T) {
	client := &stubClient{likeErr: errors.New("code 139: already favorited")}
	srv, logs := newTestServer(t, client)

	w := do(t, srv, http.MethodPost, "/like/42", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{
		"error": "Error liking tweet: code 139: already favorited",
		"kind":  "operation",
	}, decode(t, w))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestSendMessage(t *testing.T) {
	client := &stubClient{}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodPost, "/send_message/77", map[string]string{"text": "hey"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"77:hey"}, client.sent)

	w = do(t, srv, http.MethodPost, "/send_message/77", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message text is required", decode(t, w)["error"])
}

func TestHomeFeedParams(t *testing.T) {
	client := &stubClient{timeline: []*twitter.Tweet{
		{ID: "1", Text: "a", Author: &twitter.TwitterUser{Handle: "alice", DisplayName: "Alice"}},
	}}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodGet, "/home_feed?count=5&seen_tweet_ids=1&seen_tweet_ids=2,3&cursor=abc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, client.count)
	assert.Equal(t, []string{"1", "2", "3"}, client.seen)
	assert.Equal(t, "abc", client.cursor)

	body := decode(t, w)
	assert.Equal(t, "c2", body["next_cursor"])
	tweets := body["tweets"].([]any)
	require.Len(t, tweets, 1)
	first := tweets[0].(map[string]any)
	assert.Equal(t, false, first["is_bookmarked"])
	assert.Nil(t, first["quoted_tweet"])

	w = do(t, srv, http.MethodGet, "/home_feed?count=many", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHomeFeed_DefaultCount(t *testing.T) {
	client := &stubClient{timeline: []*twitter.Tweet{
		{ID: "1", Author: &twitter.TwitterUser{Handle: "alice"}},
	}}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodGet, "/home_feed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.DefaultCount, client.count)
}

func TestRepliesFailureIs400(t *testing.T) {
	client := &stubClient{tweets: map[string]*twitter.Tweet{
		"1": {ID: "1", Author: &twitter.TwitterUser{Handle: "alice"}},
	}}
	srv, _ := newTestServer(t, client)

	w := do(t, srv, http.MethodGet, "/tweet/1/replies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No replies found for the tweet.", decode(t, w)["error"])

	w = do(t, srv, http.MethodGet, "/tweet/2/replies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "operation", decode(t, w)["kind"])
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{})
	w := do(t, srv, http.MethodGet, "/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Query parameter is required", decode(t, w)["error"])
}

func TestPanicIsRecovered(t *testing.T) {
	// Viewer is not implemented by the stub.
	srv, logs := newTestServer(t, &stubClient{})
	req := httptest.NewRequest(http.MethodGet, "/current_user", nil)
	req.Header.Set("X-Request-ID", "panic-1")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "operation", decode(t, w)["kind"])
	assert.Equal(t, "panic-1", w.Header().Get("X-Request-ID"))
	assert.Contains(t, logs.String(), "handler panic")

	var access map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "http request" {
			access = entry
		}
	}
	require.NotNil(t, access, "panicking request has no access log line")
	assert.Equal(t, float64(http.StatusInternalServerError), access["status"])
	assert.Equal(t, "panic-1", access["request_id"])
	assert.Equal(t, "ERROR", access["level"])
}
