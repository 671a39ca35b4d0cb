// Package service implements the proxy's actions on top of the raw client.
//
// Every action validates its inputs, calls the client and either normalizes
// the result or returns an acknowledgement. Client failures are returned as
// *OperationError and are never retried here.
package service

import (
	"context"
	"strings"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/normalize"
)

const (
	// DefaultCount is the page size used when the caller gives none.
	DefaultCount = 20
	// DefaultProfileTweets is the number of tweets shown on a profile.
	DefaultProfileTweets = 10

	enrichmentBookmarks = 20
	// followingPage bounds the is_followed check; accounts beyond it are
	// reported as not followed.
	followingPage     = 500
	searchUserResults = 3
	searchTweetTop    = 10
	maxImages         = 4
)

// Capability is the part of the raw client the service depends on.
// *twitter.Client satisfies it.
type Capability interface {
	GetTweetByID(ctx context.Context, id string) (*twitter.Tweet, error)
	HomeLatestTimeline(ctx context.Context, count int, seenIDs []string, cursor string) (*twitter.TweetPage, error)
	Bookmarks(ctx context.Context, count int) ([]*twitter.Tweet, error)
	CreateBookmark(ctx context.Context, id string) error
	DeleteBookmark(ctx context.Context, id string) error
	FavoriteTweet(ctx context.Context, id string) error
	UnfavoriteTweet(ctx context.Context, id string) error
	Retweet(ctx context.Context, id string) (string, error)
	CreateTweet(ctx context.Context, draft twitter.TweetDraft) (*twitter.Tweet, error)
	UploadMedia(ctx context.Context, path string) (string, error)
	CreateMediaMetadata(ctx context.Context, mediaID, altText string) error
	Notifications(ctx context.Context, count int) ([]*twitter.Notification, error)
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
	Block(ctx context.Context, userID string) error
	Unblock(ctx context.Context, userID string) error
	Viewer(ctx context.Context) (*twitter.TwitterUser, error)
	GetUserByScreenName(ctx context.Context, handle string) (*twitter.TwitterUser, error)
	GetUserTweets(ctx context.Context, userID string, count int) ([]*twitter.Tweet, error)
	GetFollowing(ctx context.Context, userID string, maxCount int) ([]*twitter.TwitterUser, error)
	DMHistory(ctx context.Context, userID string) ([]*twitter.Message, error)
	SendDM(ctx context.Context, userID, text string) (*twitter.Message, error)
	SearchUsers(ctx context.Context, query string, count int) ([]*twitter.TwitterUser, error)
	SearchTweets(ctx context.Context, query string, product twitter.SearchProduct, count int) ([]*twitter.Tweet, error)
}

var _ Capability = (*twitter.Client)(nil)

// Service dispatches proxy actions. It holds no per-request state and is safe
// for concurrent use as long as the capability is.
type Service struct {
	client Capability
}

// New returns a Service acting through client.
func New(client Capability) *Service {
	return &Service{client: client}
}

// normalizer returns a Normalizer for one request. Reply targets are looked
// up through the client and remembered for the rest of the request; known
// tweets can be seeded so they are not fetched again.
func (s *Service) normalizer(known ...*twitter.Tweet) *normalize.Normalizer {
	seen := make(map[string]*twitter.Tweet, len(known))
	for _, t := range known {
		if t != nil {
			seen[t.ID] = t
		}
	}
	return normalize.New(func(ctx context.Context, id string) (*twitter.Tweet, error) {
		if t, ok := seen[id]; ok {
			return t, nil
		}
		t, err := s.client.GetTweetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		seen[id] = t
		return t, nil
	})
}

func required(value, msg string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(msg)
	}
	return nil
}

func countOr(count, def int) int {
	if count <= 0 {
		return def
	}
	return count
}
