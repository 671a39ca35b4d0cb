// Package normalize maps raw client objects onto the proxy's JSON views.
//
// Quote, reply and bookmark enrichment never fails a call: problems end up in
// the *_error fields of the view. Only a tweet without id or author, or a nil
// profile, is rejected.
package normalize

import (
	"context"
	"log/slog"
	"time"

	"github.com/Laisky/errors/v2"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
)

// ReplyFetcher loads the tweet a reply points at.
type ReplyFetcher func(ctx context.Context, id string) (*twitter.Tweet, error)

// TweetFields selects the call-site dependent parts of a TweetView.
type TweetFields struct {
	Counts    bool
	Username  bool
	IsQuote   bool
	InReplyTo bool
	Media     bool
}

var (
	// FeedFields is used by the home timeline and bookmark feeds.
	FeedFields = TweetFields{Username: true, IsQuote: true, InReplyTo: true, Media: true}
	// DetailFields is used for a single tweet and its context.
	DetailFields = TweetFields{Counts: true, Username: true, IsQuote: true, Media: true}
	// ReplyFields is used for the replies under a tweet.
	ReplyFields = TweetFields{Counts: true, Username: true, Media: true}
	// ListFields is used for tweets embedded in profiles and search results.
	ListFields = TweetFields{Media: true}
)

// Normalizer builds views. The zero value works but reports every reply as
// unresolvable.
type Normalizer struct {
	fetchReply ReplyFetcher
}

// New returns a Normalizer that resolves reply parents with fetchReply.
func New(fetchReply ReplyFetcher) *Normalizer {
	return &Normalizer{fetchReply: fetchReply}
}

// Tweet builds the view of raw. bookmarks may be nil, in which case
// is_bookmarked is left out.
func (n *Normalizer) Tweet(ctx context.Context, raw *twitter.Tweet, bookmarks *BookmarkSet, fields TweetFields) (TweetView, error) {
	if err := checkTweet(raw); err != nil {
		return TweetView{}, err
	}

	v := TweetView{
		ID:        raw.ID,
		Text:      raw.Text,
		Author:    raw.Author.DisplayName,
		CreatedAt: timestamp(raw),
		IsLiked:   raw.Favorited,
	}
	if fields.Username {
		handle := raw.Author.Handle
		v.Username = &handle
	}
	if fields.Counts {
		v.TweetCounts = counts(raw)
	}
	if fields.IsQuote {
		v.IsQuote = boolPtr(raw.IsQuoteStatus)
	}
	if fields.InReplyTo {
		v.InReplyTo = boolPtr(raw.InReplyTo != "")
	}
	if bookmarks != nil {
		v.IsBookmarked = boolPtr(bookmarks.Contains(raw.ID))
	}

	if raw.IsQuoteStatus && raw.Quote != nil {
		quoted, err := nested(raw.Quote, fields.Counts)
		if err != nil {
			v.QuotedTweetError = "Error fetching quoted tweet: " + err.Error()
			slog.Debug("normalize: quoted tweet", slog.String("tweet_id", raw.ID), slog.Any("error", err))
		} else {
			v.QuotedTweet = quoted
		}
	}

	if raw.InReplyTo != "" {
		parent, err := n.reply(ctx, raw.InReplyTo, fields.Counts)
		if err != nil {
			v.ReplyToError = "Error fetching reply tweet: " + err.Error()
			slog.Debug("normalize: reply target", slog.String("tweet_id", raw.ID),
				slog.String("in_reply_to", raw.InReplyTo), slog.Any("error", err))
		} else {
			v.ReplyTo = parent
		}
	}

	if fields.Media {
		v.MediaURLs = mediaURLs(raw.Media)
	}
	return v, nil
}

// Tweets normalizes raws in order and stops at the first hard failure.
func (n *Normalizer) Tweets(ctx context.Context, raws []*twitter.Tweet, bookmarks *BookmarkSet, fields TweetFields) ([]TweetView, error) {
	out := make([]TweetView, 0, len(raws))
	for _, raw := range raws {
		v, err := n.Tweet(ctx, raw, bookmarks, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *Normalizer) reply(ctx context.Context, id string, withCounts bool) (*NestedTweetView, error) {
	if n == nil || n.fetchReply == nil {
		return nil, errors.New("no reply fetcher configured")
	}
	parent, err := n.fetchReply(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, errors.Errorf("tweet %s not found", id)
	}
	return nested(parent, withCounts)
}

// Profile builds a profile page without tweets; callers attach them.
// following is the viewer's (bounded) following list, so is_followed can be a
// false negative for accounts beyond it.
func (n *Normalizer) Profile(raw, viewer *twitter.TwitterUser, following *FollowingSet) (ProfileView, error) {
	if raw == nil {
		return ProfileView{}, errors.New("profile is missing")
	}
	v := ProfileView{
		ID:           raw.ID,
		Name:         raw.DisplayName,
		Username:     raw.Handle,
		Followers:    raw.Followers,
		Following:    raw.Following,
		Bio:          raw.Bio,
		ProfileImage: raw.ProfileImageURL,
		Tweets:       []TweetView{},
		IsFollowable: isFollowable(raw, viewer),
		IsFollowed:   following.Contains(raw.Handle),
	}
	if raw.BannerURL != "" {
		banner := raw.BannerURL
		v.BannerURL = &banner
	}
	return v, nil
}

// SearchUser converts a user search hit, marking follow state relative to viewer.
func (n *Normalizer) SearchUser(raw, viewer *twitter.TwitterUser, following *FollowingSet) (SearchUserView, error) {
	if raw == nil {
		return SearchUserView{}, errors.New("user is missing")
	}
	return SearchUserView{
		ID:           raw.ID,
		Name:         raw.DisplayName,
		Username:     raw.Handle,
		ProfileImage: raw.ProfileImageURL,
		IsFollowable: isFollowable(raw, viewer),
		IsFollowed:   following.Contains(raw.Handle),
	}, nil
}

// CurrentUser converts the logged-in account.
func (n *Normalizer) CurrentUser(raw *twitter.TwitterUser) (CurrentUserView, error) {
	if raw == nil {
		return CurrentUserView{}, errors.New("user is missing")
	}
	return CurrentUserView{
		Name:            raw.DisplayName,
		Username:        raw.Handle,
		ProfileImageURL: raw.ProfileImageURL,
		Followers:       raw.Followers,
		Following:       raw.Following,
	}, nil
}

// Notification converts a notification; sender and tweet context are set only when a sender is known.
func (n *Normalizer) Notification(raw *twitter.Notification) (NotificationView, error) {
	if raw == nil {
		return NotificationView{}, errors.New("notification is missing")
	}
	v := NotificationView{ID: raw.ID, Message: raw.Message}
	if raw.FromUser == nil {
		return v, nil
	}
	name := raw.FromUser.DisplayName
	var text, id string
	if raw.Tweet != nil {
		text, id = raw.Tweet.Text, raw.Tweet.ID
	}
	v.FromUser, v.ContextText, v.ContextID = &name, &text, &id
	return v, nil
}

// Message converts a direct message.
func (n *Normalizer) Message(raw *twitter.Message) (MessageView, error) {
	if raw == nil {
		return MessageView{}, errors.New("message is missing")
	}
	return MessageView{Sender: raw.SenderID, Text: raw.Text}, nil
}

func checkTweet(raw *twitter.Tweet) error {
	switch {
	case raw == nil:
		return errors.New("tweet is missing")
	case raw.ID == "":
		return errors.New("tweet has no id")
	case raw.Author == nil:
		return errors.Errorf("tweet %s has no author", raw.ID)
	}
	return nil
}

func nested(raw *twitter.Tweet, withCounts bool) (*NestedTweetView, error) {
	if err := checkTweet(raw); err != nil {
		return nil, err
	}
	v := &NestedTweetView{
		ID:        raw.ID,
		Text:      raw.Text,
		Author:    raw.Author.DisplayName,
		Username:  raw.Author.Handle,
		CreatedAt: timestamp(raw),
	}
	if withCounts {
		v.TweetCounts = counts(raw)
	}
	return v, nil
}

func counts(raw *twitter.Tweet) *TweetCounts {
	return &TweetCounts{
		ReplyCount:   raw.ReplyCount,
		ViewCount:    raw.Views,
		QuoteCount:   raw.Quotes,
		RetweetCount: raw.Retweets,
		LikesCount:   raw.Likes,
	}
}

// timestamp prefers the parsed time and falls back to the payload string.
func timestamp(raw *twitter.Tweet) string {
	if raw.CreatedAt.IsZero() {
		return raw.CreatedAtRaw
	}
	return raw.CreatedAt.UTC().Format(time.RFC3339)
}

func mediaURLs(media []twitter.Media) []string {
	var urls []string
	for _, m := range media {
		if m.MediaURLHTTPS != "" {
			urls = append(urls, m.MediaURLHTTPS)
		}
	}
	return urls
}

func isFollowable(raw, viewer *twitter.TwitterUser) bool {
	return viewer == nil || raw.Handle != viewer.Handle
}

func boolPtr(b bool) *bool { return &b }
