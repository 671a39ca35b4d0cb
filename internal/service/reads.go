package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/normalize"
)

// HomeFeed returns the viewer's latest timeline. seenIDs and cursor are
// passed through to the client for pagination.
func (s *Service) HomeFeed(ctx context.Context, count int, seenIDs []string, cursor string) (normalize.FeedView, error) {
	const prefix = "Error fetching home feed"
	count = countOr(count, DefaultCount)

	bookmarks, err := s.client.Bookmarks(ctx, count)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	page, err := s.client.HomeLatestTimeline(ctx, count, seenIDs, cursor)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	if page == nil || len(page.Tweets) == 0 {
		return normalize.FeedView{}, failed(prefix, errNoTweets)
	}

	tweets, err := s.normalizer(page.Tweets...).Tweets(ctx, page.Tweets, normalize.NewBookmarkSet(bookmarks), normalize.FeedFields)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	return normalize.FeedView{Tweets: tweets, NextCursor: page.NextCursor}, nil
}

// BookmarksFeed returns the newest count bookmarks.
func (s *Service) BookmarksFeed(ctx context.Context, count int) (normalize.FeedView, error) {
	const prefix = "Error fetching bookmarks"
	bookmarks, err := s.client.Bookmarks(ctx, countOr(count, DefaultCount))
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	if len(bookmarks) == 0 {
		return normalize.FeedView{}, failed(prefix, errNoBookmarks)
	}

	tweets, err := s.normalizer(bookmarks...).Tweets(ctx, bookmarks, normalize.NewBookmarkSet(bookmarks), normalize.FeedFields)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	return normalize.FeedView{Tweets: tweets}, nil
}

// Notifications returns the newest count notifications.
func (s *Service) Notifications(ctx context.Context, count int) (normalize.NotificationsView, error) {
	const prefix = "Error fetching notifications"
	raws, err := s.client.Notifications(ctx, countOr(count, DefaultCount))
	if err != nil {
		return normalize.NotificationsView{}, failed(prefix, err)
	}
	if len(raws) == 0 {
		return normalize.NotificationsView{}, failed(prefix, errNoNotifications)
	}

	n := s.normalizer()
	out := make([]normalize.NotificationView, 0, len(raws))
	for _, raw := range raws {
		v, err := n.Notification(raw)
		if err != nil {
			return normalize.NotificationsView{}, failed(prefix, err)
		}
		out = append(out, v)
	}
	return normalize.NotificationsView{Notifications: out}, nil
}

// CurrentUser describes the logged-in account.
func (s *Service) CurrentUser(ctx context.Context) (normalize.CurrentUserView, error) {
	const prefix = "Error retrieving user"
	viewer, err := s.client.Viewer(ctx)
	if err != nil {
		return normalize.CurrentUserView{}, failed(prefix, err)
	}
	v, err := s.normalizer().CurrentUser(viewer)
	if err != nil {
		return normalize.CurrentUserView{}, failed(prefix, err)
	}
	return v, nil
}

// Tweet returns a single tweet with its counters, quote and reply target.
func (s *Service) Tweet(ctx context.Context, id string) (normalize.TweetView, error) {
	return s.tweetDetail(ctx, id, "Error getting tweet details")
}

// TweetContext is Tweet under its own failure message.
func (s *Service) TweetContext(ctx context.Context, id string) (normalize.TweetView, error) {
	return s.tweetDetail(ctx, id, "Error getting tweet context")
}

func (s *Service) tweetDetail(ctx context.Context, id, prefix string) (normalize.TweetView, error) {
	if err := required(id, "Tweet ID is required"); err != nil {
		return normalize.TweetView{}, err
	}
	raw, err := s.client.GetTweetByID(ctx, id)
	if err != nil {
		return normalize.TweetView{}, failed(prefix, err)
	}
	bookmarks, err := s.client.Bookmarks(ctx, enrichmentBookmarks)
	if err != nil {
		return normalize.TweetView{}, failed(prefix, err)
	}
	v, err := s.normalizer().Tweet(ctx, raw, normalize.NewBookmarkSet(bookmarks), normalize.DetailFields)
	if err != nil {
		return normalize.TweetView{}, failed(prefix, err)
	}
	return v, nil
}

// Replies returns the first tweet of every conversation thread under id.
func (s *Service) Replies(ctx context.Context, id string) (normalize.RepliesView, error) {
	const prefix = "Error fetching replies"
	if err := required(id, "Tweet ID is required"); err != nil {
		return normalize.RepliesView{}, err
	}
	focal, err := s.client.GetTweetByID(ctx, id)
	if err != nil {
		return normalize.RepliesView{}, failed(prefix, err)
	}
	if focal == nil || len(focal.Replies) == 0 {
		return normalize.RepliesView{}, &OperationError{Err: errNoReplies}
	}

	replies, err := s.normalizer(focal).Tweets(ctx, focal.Replies, nil, normalize.ReplyFields)
	if err != nil {
		return normalize.RepliesView{}, failed(prefix, err)
	}
	return normalize.RepliesView{Replies: replies}, nil
}

// UserProfile returns handle's profile with up to count of their tweets.
func (s *Service) UserProfile(ctx context.Context, handle string, count int) (normalize.ProfileView, error) {
	const prefix = "Error fetching user profile"
	if err := required(handle, "Username is required"); err != nil {
		return normalize.ProfileView{}, err
	}
	user, err := s.lookupUser(ctx, handle)
	if err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}
	raws, err := s.client.GetUserTweets(ctx, user.ID, countOr(count, DefaultProfileTweets))
	if err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}
	if len(raws) == 0 {
		return normalize.ProfileView{}, failed(prefix, errNoTweets)
	}
	bookmarks, err := s.client.Bookmarks(ctx, enrichmentBookmarks)
	if err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}
	viewer, following, err := s.relationship(ctx)
	if err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}

	n := s.normalizer(raws...)
	profile, err := n.Profile(user, viewer, following)
	if err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}
	if profile.Tweets, err = n.Tweets(ctx, raws, normalize.NewBookmarkSet(bookmarks), normalize.ListFields); err != nil {
		return normalize.ProfileView{}, failed(prefix, err)
	}
	return profile, nil
}

// relationship loads the viewer and the first page of accounts they follow.
func (s *Service) relationship(ctx context.Context) (*twitter.TwitterUser, *normalize.FollowingSet, error) {
	viewer, err := s.client.Viewer(ctx)
	if err != nil {
		return nil, nil, err
	}
	following, err := s.client.GetFollowing(ctx, viewer.ID, followingPage)
	if err != nil {
		return nil, nil, err
	}
	return viewer, normalize.NewFollowingSet(following), nil
}

// ChatHistory returns the direct message conversation with userID.
func (s *Service) ChatHistory(ctx context.Context, userID string) (normalize.MessagesView, error) {
	const prefix = "Error fetching chat history"
	if err := required(userID, "User ID is required"); err != nil {
		return normalize.MessagesView{}, err
	}
	raws, err := s.client.DMHistory(ctx, userID)
	if err != nil {
		return normalize.MessagesView{}, failed(prefix, err)
	}

	n := s.normalizer()
	out := make([]normalize.MessageView, 0, len(raws))
	for _, raw := range raws {
		v, err := n.Message(raw)
		if err != nil {
			return normalize.MessagesView{}, failed(prefix, err)
		}
		out = append(out, v)
	}
	return normalize.MessagesView{Messages: out}, nil
}

// UserID resolves a handle to its numeric id.
func (s *Service) UserID(ctx context.Context, handle string) (normalize.UserIDView, error) {
	if err := required(handle, "Username is required"); err != nil {
		return normalize.UserIDView{}, err
	}
	user, err := s.lookupUser(ctx, handle)
	if err != nil {
		return normalize.UserIDView{}, failed("Error fetching user ID", err)
	}
	return normalize.UserIDView{UserID: user.ID}, nil
}

func (s *Service) lookupUser(ctx context.Context, handle string) (*twitter.TwitterUser, error) {
	user, err := s.client.GetUserByScreenName(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, errors.Errorf("user @%s not found", handle)
	}
	return user, nil
}

// Search returns the top user and tweet matches for query.
func (s *Service) Search(ctx context.Context, query string) (normalize.SearchResultView, error) {
	const prefix = "Error searching"
	if err := required(query, "Query parameter is required"); err != nil {
		return normalize.SearchResultView{}, err
	}
	bookmarks, err := s.client.Bookmarks(ctx, enrichmentBookmarks)
	if err != nil {
		return normalize.SearchResultView{}, failed(prefix, err)
	}
	users, err := s.client.SearchUsers(ctx, query, searchUserResults)
	if err != nil {
		return normalize.SearchResultView{}, failed(prefix, err)
	}
	raws, err := s.client.SearchTweets(ctx, query, twitter.SearchTop, searchTweetTop)
	if err != nil {
		return normalize.SearchResultView{}, failed(prefix, err)
	}
	viewer, following, err := s.relationship(ctx)
	if err != nil {
		return normalize.SearchResultView{}, failed(prefix, err)
	}

	n := s.normalizer(raws...)
	result := normalize.SearchResultView{UserResults: make([]normalize.SearchUserView, 0, len(users))}
	for _, u := range users {
		v, err := n.SearchUser(u, viewer, following)
		if err != nil {
			return normalize.SearchResultView{}, failed(prefix, err)
		}
		result.UserResults = append(result.UserResults, v)
	}
	if result.TweetResults, err = n.Tweets(ctx, raws, normalize.NewBookmarkSet(bookmarks), normalize.ListFields); err != nil {
		return normalize.SearchResultView{}, failed(prefix, err)
	}
	return result, nil
}

// SearchTweets returns the latest tweets matching query.
func (s *Service) SearchTweets(ctx context.Context, query string, count int) (normalize.FeedView, error) {
	const prefix = "Error searching tweets"
	if err := required(query, "Query parameter is required"); err != nil {
		return normalize.FeedView{}, err
	}
	bookmarks, err := s.client.Bookmarks(ctx, enrichmentBookmarks)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	raws, err := s.client.SearchTweets(ctx, query, twitter.SearchLatest, countOr(count, DefaultCount))
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}

	tweets, err := s.normalizer(raws...).Tweets(ctx, raws, normalize.NewBookmarkSet(bookmarks), normalize.ListFields)
	if err != nil {
		return normalize.FeedView{}, failed(prefix, err)
	}
	return normalize.FeedView{Tweets: tweets}, nil
}
