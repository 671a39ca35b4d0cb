package service

import (
	"context"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/normalize"
)

func user(id, handle string) *twitter.TwitterUser {
	return &twitter.TwitterUser{ID: id, Handle: handle, DisplayName: "Name " + handle}
}

func rawTweet(id string) *twitter.Tweet {
	return &twitter.Tweet{ID: id, Text: "text " + id, Author: user("1", "alice"), CreatedAtRaw: "raw"}
}

func TestCreateTweet_EmptyContentMakesNoCalls(t *testing.T) {
	f := newFake()
	svc := New(f)

	for _, content := range []string{"", "   "} {
		_, err := svc.CreateTweet(context.Background(), TweetRequest{
			Content:    content,
			ImagePaths: []string{"a.png"},
			ReplyTo:    "1",
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, "Content is required to create a tweet", err.Error())
	}
	assert.Empty(t, f.calls)
}

func TestCreateTweet_AttachmentWinsOverReply(t *testing.T) {
	f := newFake()
	created, err := New(f).CreateTweet(context.Background(), TweetRequest{
		Content:       "look",
		ReplyTo:       "11",
		AttachmentURL: "https://x.com/bob/status/22",
	})
	require.NoError(t, err)
	assert.Equal(t, normalize.CreatedTweet{ID: "500", Text: "look"}, created)

	require.Len(t, f.drafts, 1)
	assert.Equal(t, "https://x.com/bob/status/22", f.drafts[0].AttachmentURL)
	assert.Empty(t, f.drafts[0].ReplyTo)
}

func TestCreateTweet_Modes(t *testing.T) {
	f := newFake()
	svc := New(f)
	ctx := context.Background()

	_, err := svc.CreateTweet(ctx, TweetRequest{Content: "reply", ReplyTo: "11"})
	require.NoError(t, err)
	_, err = svc.CreateTweet(ctx, TweetRequest{Content: "plain"})
	require.NoError(t, err)

	require.Len(t, f.drafts, 2)
	assert.Equal(t, twitter.TweetDraft{Text: "reply", ReplyTo: "11"}, f.drafts[0])
	assert.Equal(t, twitter.TweetDraft{Text: "plain"}, f.drafts[1])
	assert.Zero(t, f.count("UploadMedia"))
}

func TestCreateTweet_MediaWithAltTexts(t *testing.T) {
	f := newFake()
	_, err := New(f).CreateTweet(context.Background(), TweetRequest{
		Content:    "pics",
		ImagePaths: []string{"a.png", "", "c.png", "d.png"},
		AltTexts:   []string{"first", "", "third"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "c.png", "d.png"}, f.uploads)
	assert.Equal(t, [][2]string{{"media-a.png", "first"}, {"media-d.png", "third"}}, f.metadata)
	assert.Equal(t, []string{"media-a.png", "media-c.png", "media-d.png"}, f.drafts[0].MediaIDs)
}

func TestCreateTweet_MediaWithoutAltTexts(t *testing.T) {
	f := newFake()
	_, err := New(f).CreateTweet(context.Background(), TweetRequest{
		Content:    "pics",
		ImagePaths: []string{"", "b.png", "c.png"},
		AltTexts:   []string{"", " "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.png", "c.png"}, f.uploads)
	assert.Equal(t, [][2]string{{"media-b.png", ""}}, f.metadata)
}

func TestCreateTweet_UploadFailure(t *testing.T) {
	f := newFake()
	f.errs["UploadMedia"] = errors.New("HTTP 413")

	_, err := New(f).CreateTweet(context.Background(), TweetRequest{Content: "pics", ImagePaths: []string{"a.png"}})
	require.Error(t, err)
	assert.Equal(t, KindOperation, KindOf(err))
	assert.Equal(t, "Error posting tweet: Error uploading media: HTTP 413", err.Error())
	assert.Zero(t, f.count("CreateTweet"))
}

func TestCreateTweet_TooManyImages(t *testing.T) {
	f := newFake()
	_, err := New(f).CreateTweet(context.Background(), TweetRequest{
		Content:    "pics",
		ImagePaths: []string{"1", "2", "3", "4", "5"},
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.calls)
}

func TestQuoteTweet(t *testing.T) {
	f := newFake()
	svc := New(f)

	_, err := svc.QuoteTweet(context.Background(), TweetRequest{Content: "hm"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = svc.QuoteTweet(context.Background(), TweetRequest{Content: "hm", ReplyTo: "9", AttachmentURL: "https://x.com/a/status/1"})
	require.NoError(t, err)
	require.Len(t, f.drafts, 1)
	assert.Empty(t, f.drafts[0].ReplyTo)
}

func TestAcknowledgements(t *testing.T) {
	f := newFake()
	svc := New(f)
	ctx := context.Background()

	cases := []struct {
		call func() (normalize.Ack, error)
		op   string
		want string
	}{
		{func() (normalize.Ack, error) { return svc.Like(ctx, "1") }, "FavoriteTweet", "Tweet liked successfully"},
		{func() (normalize.Ack, error) { return svc.Unlike(ctx, "1") }, "UnfavoriteTweet", "Tweet unliked successfully"},
		{func() (normalize.Ack, error) { return svc.Bookmark(ctx, "1") }, "CreateBookmark", "Tweet bookmarked successfully"},
		{func() (normalize.Ack, error) { return svc.Unbookmark(ctx, "1") }, "DeleteBookmark", "Removed bookmark successfully"},
		{func() (normalize.Ack, error) { return svc.Retweet(ctx, "1") }, "Retweet", "Retweeted successfully"},
		{func() (normalize.Ack, error) { return svc.Follow(ctx, "2") }, "Follow", "User followed successfully"},
		{func() (normalize.Ack, error) { return svc.Unfollow(ctx, "2") }, "Unfollow", "User unfollowed successfully"},
		{func() (normalize.Ack, error) { return svc.Block(ctx, "2") }, "Block", "User blocked successfully"},
		{func() (normalize.Ack, error) { return svc.Unblock(ctx, "2") }, "Unblock", "User unblocked successfully"},
		{func() (normalize.Ack, error) { return svc.SendMessage(ctx, "2", "hi") }, "SendDM", "Message sent successfully"},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			ack, err := tc.call()
			require.NoError(t, err)
			assert.Equal(t, tc.want, ack.Response)
			assert.Equal(t, 1, f.count(tc.op))
		})
	}
}

func TestActionFailureIsWrapped(t *testing.T) {
	f := newFake()
	cause := errors.New("code 144: No status found with that ID")
	f.errs["FavoriteTweet"] = cause

	_, err := New(f).Like(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, "Error liking tweet: code 144: No status found with that ID", err.Error())

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "Error liking tweet", opErr.Prefix)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 1, f.count("FavoriteTweet"))
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFake()
	_, err := New(f).SendMessage(context.Background(), "2", "")
	require.Error(t, err)
	assert.Equal(t, "Message text is required", err.Error())
	assert.Empty(t, f.calls)
}

func TestHomeFeed(t *testing.T) {
	f := newFake()
	reply := rawTweet("2")
	reply.InReplyTo = "1"
	external := rawTweet("3")
	external.InReplyTo = "77"
	f.timeline = &twitter.TweetPage{Tweets: []*twitter.Tweet{rawTweet("1"), reply, external}, NextCursor: "next"}
	f.bookmarks = []*twitter.Tweet{rawTweet("2")}
	f.tweets["77"] = rawTweet("77")

	feed, err := New(f).HomeFeed(context.Background(), 0, []string{"0"}, "")
	require.NoError(t, err)
	require.Len(t, feed.Tweets, 3)
	assert.Equal(t, "next", feed.NextCursor)
	assert.Equal(t, DefaultCount, f.lastCount["HomeLatestTimeline"])

	assert.False(t, *feed.Tweets[0].IsBookmarked)
	assert.True(t, *feed.Tweets[1].IsBookmarked)
	require.NotNil(t, feed.Tweets[1].ReplyTo)
	assert.Equal(t, "1", feed.Tweets[1].ReplyTo.ID)
	require.NotNil(t, feed.Tweets[2].ReplyTo)
	assert.Equal(t, "77", feed.Tweets[2].ReplyTo.ID)
	// tweet 1 was already on the page
	assert.Equal(t, 1, f.count("GetTweetByID"))
}

func TestHomeFeed_ReplyFetchFailureIsInline(t *testing.T) {
	f := newFake()
	reply := rawTweet("2")
	reply.InReplyTo = "404"
	f.timeline = &twitter.TweetPage{Tweets: []*twitter.Tweet{reply}}

	feed, err := New(f).HomeFeed(context.Background(), 5, nil, "")
	require.NoError(t, err)
	require.Len(t, feed.Tweets, 1)
	assert.Nil(t, feed.Tweets[0].ReplyTo)
	assert.Equal(t, "Error fetching reply tweet: tweet 404 not found", feed.Tweets[0].ReplyToError)
	assert.Equal(t, "text 2", feed.Tweets[0].Text)
}

func TestHomeFeed_Empty(t *testing.T) {
	f := newFake()
	f.timeline = &twitter.TweetPage{}

	_, err := New(f).HomeFeed(context.Background(), 20, nil, "")
	require.Error(t, err)
	assert.Equal(t, KindOperation, KindOf(err))
	assert.Equal(t, "Error fetching home feed: no tweets returned, check authentication", err.Error())
}

func TestBookmarksFeed(t *testing.T) {
	f := newFake()
	f.bookmarks = []*twitter.Tweet{rawTweet("1"), rawTweet("2")}

	feed, err := New(f).BookmarksFeed(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, feed.Tweets, 2)
	for _, tw := range feed.Tweets {
		require.NotNil(t, tw.IsBookmarked)
		assert.True(t, *tw.IsBookmarked)
	}

	f.bookmarks = nil
	_, err = New(f).BookmarksFeed(context.Background(), 0)
	require.Error(t, err)
}

func TestTweetDetail(t *testing.T) {
	f := newFake()
	raw := rawTweet("1")
	raw.Views, raw.Likes = 100, 7
	raw.IsQuoteStatus = true
	raw.Quote = rawTweet("5")
	raw.InReplyTo = "9"
	f.tweets["1"] = raw
	f.tweets["9"] = rawTweet("9")
	f.bookmarks = []*twitter.Tweet{rawTweet("1")}

	v, err := New(f).Tweet(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, v.TweetCounts)
	assert.Equal(t, 100, v.ViewCount)
	assert.Equal(t, 7, v.LikesCount)
	assert.True(t, *v.IsBookmarked)
	require.NotNil(t, v.QuotedTweet)
	assert.Equal(t, "5", v.QuotedTweet.ID)
	require.NotNil(t, v.ReplyTo)
	assert.Equal(t, "9", v.ReplyTo.ID)
	assert.Equal(t, enrichmentBookmarks, f.lastCount["Bookmarks"])

	f.errs["GetTweetByID"] = errors.New("boom")
	_, err = New(f).TweetContext(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, "Error getting tweet context: boom", err.Error())
}

func TestReplies(t *testing.T) {
	f := newFake()
	focal := rawTweet("1")
	r1, r2 := rawTweet("2"), rawTweet("3")
	r1.InReplyTo, r2.InReplyTo = "1", "1"
	focal.Replies = []*twitter.Tweet{r1, r2}
	f.tweets["1"] = focal

	v, err := New(f).Replies(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, v.Replies, 2)
	assert.Equal(t, "1", v.Replies[0].ReplyTo.ID)
	assert.Nil(t, v.Replies[0].IsBookmarked)
	assert.Equal(t, 1, f.count("GetTweetByID"))

	focal.Replies = nil
	_, err = New(f).Replies(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, "No replies found for the tweet.", err.Error())
}

func TestUserProfile(t *testing.T) {
	f := newFake()
	f.users["bob"] = user("2", "bob")
	f.users["me"] = f.viewer
	f.userTweets = []*twitter.Tweet{rawTweet("1")}
	f.following = []*twitter.TwitterUser{user("2", "bob")}

	v, err := New(f).UserProfile(context.Background(), "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, "bob", v.Username)
	assert.True(t, v.IsFollowable)
	assert.True(t, v.IsFollowed)
	require.Len(t, v.Tweets, 1)
	assert.Nil(t, v.Tweets[0].Username)
	assert.Equal(t, DefaultProfileTweets, f.lastCount["GetUserTweets"])
	assert.Equal(t, followingPage, f.lastCount["GetFollowing"])

	self, err := New(f).UserProfile(context.Background(), "me", 3)
	require.NoError(t, err)
	assert.False(t, self.IsFollowable)
	assert.False(t, self.IsFollowed)
}

func TestUserProfile_UnknownUser(t *testing.T) {
	f := newFake()
	_, err := New(f).UserProfile(context.Background(), "ghost", 10)
	require.Error(t, err)
	assert.Equal(t, "Error fetching user profile: user ghost not found", err.Error())
	assert.Zero(t, f.count("GetUserTweets"))
}

func TestSearch(t *testing.T) {
	f := newFake()
	f.searchU = []*twitter.TwitterUser{user("2", "bob"), user("100", "me")}
	f.searchT = []*twitter.Tweet{rawTweet("1")}
	f.bookmarks = []*twitter.Tweet{rawTweet("1")}
	f.following = []*twitter.TwitterUser{user("2", "bob")}

	res, err := New(f).Search(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, res.UserResults, 2)
	assert.True(t, res.UserResults[0].IsFollowed)
	assert.False(t, res.UserResults[1].IsFollowable)
	require.Len(t, res.TweetResults, 1)
	assert.True(t, *res.TweetResults[0].IsBookmarked)

	assert.Equal(t, 1, f.count("Viewer"))
	assert.Equal(t, 1, f.count("GetFollowing"))
	assert.Equal(t, searchUserResults, f.lastCount["SearchUsers"])
	assert.Equal(t, []twitter.SearchProduct{twitter.SearchTop}, f.products)
}

func TestSearch_RequiresQuery(t *testing.T) {
	f := newFake()
	_, err := New(f).Search(context.Background(), " ")
	require.Error(t, err)
	assert.Equal(t, "Query parameter is required", err.Error())

	_, err = New(f).SearchTweets(context.Background(), "", 0)
	require.Error(t, err)
	assert.Empty(t, f.calls)
}

func TestSearchTweets(t *testing.T) {
	f := newFake()
	f.searchT = []*twitter.Tweet{rawTweet("1"), rawTweet("2")}

	feed, err := New(f).SearchTweets(context.Background(), "golang", 0)
	require.NoError(t, err)
	assert.Len(t, feed.Tweets, 2)
	assert.Equal(t, []twitter.SearchProduct{twitter.SearchLatest}, f.products)
}

func TestNotificationsAndMessages(t *testing.T) {
	f := newFake()
	f.notifs = []*twitter.Notification{
		{ID: "n1", Message: "login"},
		{ID: "n2", Message: "liked", FromUser: user("2", "bob"), Tweet: rawTweet("5")},
	}
	f.messages = []*twitter.Message{{ID: "m1", SenderID: "2", Text: "hi"}}

	svc := New(f)
	nv, err := svc.Notifications(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, nv.Notifications, 2)
	assert.Nil(t, nv.Notifications[0].FromUser)
	assert.Equal(t, "5", *nv.Notifications[1].ContextID)

	mv, err := svc.ChatHistory(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, []normalize.MessageView{{Sender: "2", Text: "hi"}}, mv.Messages)

	f.notifs = nil
	_, err = svc.Notifications(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, "Error fetching notifications: no notifications returned, check authentication", err.Error())
}

func TestCurrentUserAndUserID(t *testing.T) {
	f := newFake()
	f.viewer.Followers = 42
	f.users["bob"] = user("2", "bob")
	svc := New(f)

	cu, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me", cu.Username)
	assert.Equal(t, 42, cu.Followers)
	assert.False(t, cu.IsFollowable)

	id, err := svc.UserID(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, normalize.UserIDView{UserID: "2"}, id)
}
