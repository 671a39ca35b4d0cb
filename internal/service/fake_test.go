package service

import (
	"context"
	"sync"

	errors "github.com/Laisky/errors/v2"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
)

// fakeClient is an in-memory Capability that records every call.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	tweets     map[string]*twitter.Tweet
	bookmarks  []*twitter.Tweet
	timeline   *twitter.TweetPage
	users      map[string]*twitter.TwitterUser
	userTweets []*twitter.Tweet
	following  []*twitter.TwitterUser
	viewer     *twitter.TwitterUser
	notifs     []*twitter.Notification
	messages   []*twitter.Message
	searchU    []*twitter.TwitterUser
	searchT    []*twitter.Tweet

	// errs fails the named operation.
	errs map[string]error

	drafts    []twitter.TweetDraft
	uploads   []string
	metadata  [][2]string
	lastCount map[string]int
	products  []twitter.SearchProduct
}

func newFake() *fakeClient {
	return &fakeClient{
		tweets:    map[string]*twitter.Tweet{},
		users:     map[string]*twitter.TwitterUser{},
		errs:      map[string]error{},
		lastCount: map[string]int{},
		viewer:    &twitter.TwitterUser{ID: "100", Handle: "me", DisplayName: "Me"},
	}
}

func (f *fakeClient) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeClient) GetTweetByID(_ context.Context, id string) (*twitter.Tweet, error) {
	if err := f.record("GetTweetByID"); err != nil {
		return nil, err
	}
	t, ok := f.tweets[id]
	if !ok {
		return nil, errors.Errorf("tweet %s not found", id)
	}
	return t, nil
}

func (f *fakeClient) HomeLatestTimeline(_ context.Context, count int, _ []string, _ string) (*twitter.TweetPage, error) {
	f.lastCount["HomeLatestTimeline"] = count
	if err := f.record("HomeLatestTimeline"); err != nil {
		return nil, err
	}
	return f.timeline, nil
}

func (f *fakeClient) Bookmarks(_ context.Context, count int) ([]*twitter.Tweet, error) {
	f.lastCount["Bookmarks"] = count
	if err := f.record("Bookmarks"); err != nil {
		return nil, err
	}
	return f.bookmarks, nil
}

func (f *fakeClient) CreateBookmark(context.Context, string) error { return f.record("CreateBookmark") }
func (f *fakeClient) DeleteBookmark(context.Context, string) error { return f.record("DeleteBookmark") }
func (f *fakeClient) FavoriteTweet(context.Context, string) error { return f.record("FavoriteTweet") }
func (f *fakeClient) UnfavoriteTweet(context.Context, string) error { return f.record("UnfavoriteTweet") }
func (f *fakeClient) Follow(context.Context, string) error { return f.record("Follow") }
func (f *fakeClient) Unfollow(context.Context, string) error { return f.record("Unfollow") }
func (f *fakeClient) Block(context.Context, string) error { return f.record("Block") }
func (f *fakeClient) Unblock(context.Context, string) error { return f.record("Unblock") }

func (f *fakeClient) Retweet(_ context.Context, id string) (string, error) {
	if err := f.record("Retweet"); err != nil {
		return "", err
	}
	return "rt-" + id, nil
}

func (f *fakeClient) CreateTweet(_ context.Context, draft twitter.TweetDraft) (*twitter.Tweet, error) {
	f.drafts = append(f.drafts, draft)
	if err := f.record("CreateTweet"); err != nil {
		return nil, err
	}
	return &twitter.Tweet{ID: "500", Text: draft.Text}, nil
}

func (f *fakeClient) UploadMedia(_ context.Context, path string) (string, error) {
	if err := f.record("UploadMedia"); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, path)
	return "media-" + path, nil
}

func (f *fakeClient) CreateMediaMetadata(_ context.Context, mediaID, alt string) error {
	if err := f.record("CreateMediaMetadata"); err != nil {
		return err
	}
	f.metadata = append(f.metadata, [2]string{mediaID, alt})
	return nil
}

func (f *fakeClient) Notifications(_ context.Context, count int) ([]*twitter.Notification, error) {
	f.lastCount["Notifications"] = count
	if err := f.record("Notifications"); err != nil {
		return nil, err
	}
	return f.notifs, nil
}

func (f *fakeClient) Viewer(context.Context) (*twitter.TwitterUser, error) {
	if err := f.record("Viewer"); err != nil {
		return nil, err
	}
	return f.viewer, nil
}

func (f *fakeClient) GetUserByScreenName(_ context.Context, handle string) (*twitter.TwitterUser, error) {
	if err := f.record("GetUserByScreenName"); err != nil {
		return nil, err
	}
	u, ok := f.users[handle]
	if !ok {
		return nil, errors.Errorf("user %s not found", handle)
	}
	return u, nil
}

func (f *fakeClient) GetUserTweets(_ context.Context, _ string, count int) ([]*twitter.Tweet, error) {
	f.lastCount["GetUserTweets"] = count
	if err := f.record("GetUserTweets"); err != nil {
		return nil, err
	}
	return f.userTweets, nil
}

func (f *fakeClient) GetFollowing(_ context.Context, _ string, maxCount int) ([]*twitter.TwitterUser, error) {
	f.lastCount["GetFollowing"] = maxCount
	if err := f.record("GetFollowing"); err != nil {
		return nil, err
	}
	return f.following, nil
}

func (f *fakeClient) DMHistory(context.Context, string) ([]*twitter.Message, error) {
	if err := f.record("DMHistory"); err != nil {
		return nil, err
	}
	return f.messages, nil
}

func (f *fakeClient) SendDM(_ context.Context, userID, text string) (*twitter.Message, error) {
	if err := f.record("SendDM"); err != nil {
		return nil, err
	}
	return &twitter.Message{ID: "m1", SenderID: f.viewer.ID, RecipientID: userID, Text: text}, nil
}

func (f *fakeClient) SearchUsers(_ context.Context, _ string, count int) ([]*twitter.TwitterUser, error) {
	f.lastCount["SearchUsers"] = count
	if err := f.record("SearchUsers"); err != nil {
		return nil, err
	}
	return f.searchU, nil
}

func (f *fakeClient) SearchTweets(_ context.Context, _ string, product twitter.SearchProduct, count int) ([]*twitter.Tweet, error) {
	f.lastCount["SearchTweets"] = count
	f.products = append(f.products, product)
	if err := f.record("SearchTweets"); err != nil {
		return nil, err
	}
	return f.searchT, nil
}
