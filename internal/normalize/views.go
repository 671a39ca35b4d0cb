package normalize

// TweetCounts holds the engagement counters. It is embedded by pointer so a
// nil value drops every counter key from the JSON object.
type TweetCounts struct {
	ReplyCount   int `json:"reply_count"`
	ViewCount    int `json:"view_count"`
	QuoteCount   int `json:"quote_count"`
	RetweetCount int `json:"retweet_count"`
	LikesCount   int `json:"likes_count"`
}

// TweetView is the JSON shape of a tweet.
//
// QuotedTweet and ReplyTo are always emitted, null when there is nothing to
// show. Username, the counters, IsQuote, InReplyTo and IsBookmarked are only
// emitted when the caller asked for them.
type TweetView struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Author    string  `json:"author"`
	Username  *string `json:"username,omitempty"`
	CreatedAt string  `json:"created_at"`
	*TweetCounts

	IsQuote      *bool `json:"is_quote,omitempty"`
	InReplyTo    *bool `json:"in_reply_to,omitempty"`
	IsLiked      bool  `json:"is_liked"`
	IsBookmarked *bool `json:"is_bookmarked,omitempty"`

	QuotedTweet      *NestedTweetView `json:"quoted_tweet"`
	QuotedTweetError string           `json:"quoted_tweet_error,omitempty"`
	ReplyTo          *NestedTweetView `json:"reply_to"`
	ReplyToError     string           `json:"reply_to_error,omitempty"`

	MediaURLs []string `json:"media_urls,omitempty"`
}

// NestedTweetView is the reduced shape used for quoted and replied-to tweets.
type NestedTweetView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	*TweetCounts
}

// ProfileView is a user profile page.
type ProfileView struct {
	ID           string      `json:"middleId"`
	Name         string      `json:"middleName"`
	Username     string      `json:"middleUsername"`
	Followers    int         `json:"middleFollowers"`
	Following    int         `json:"middleFollowing"`
	Bio          string      `json:"bio"`
	ProfileImage string      `json:"middleProfileImage"`
	BannerURL    *string     `json:"bannerUrl"`
	Tweets       []TweetView `json:"tweets"`
	IsFollowable bool        `json:"is_followable"`
	IsFollowed   bool        `json:"is_followed"`
}

// SearchUserView is one user in a search result.
type SearchUserView struct {
	ID           string `json:"searchResultId"`
	Name         string `json:"searchResultName"`
	Username     string `json:"searchResultUsername"`
	ProfileImage string `json:"searchResultProfileImage"`
	IsFollowable bool   `json:"is_followable"`
	IsFollowed   bool   `json:"is_followed"`
}

// CurrentUserView describes the authenticated account.
type CurrentUserView struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	Followers       int    `json:"followers"`
	Following       int    `json:"following"`
	IsFollowable    bool   `json:"is_followable"`
}

// NotificationView carries the source user and tweet context only when the
// notification names a source user.
type NotificationView struct {
	ID          string  `json:"id"`
	Message     string  `json:"message"`
	FromUser    *string `json:"from_user,omitempty"`
	ContextText *string `json:"context_text,omitempty"`
	ContextID   *string `json:"context_id,omitempty"`
}

// MessageView is a direct message. Sender is the sender's user id.
type MessageView struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// SearchResultView is the combined user and tweet search result.
type SearchResultView struct {
	UserResults  []SearchUserView `json:"user_results"`
	TweetResults []TweetView      `json:"tweet_results"`
}

// FeedView is a page of tweets with the cursor for the next one.
type FeedView struct {
	Tweets     []TweetView `json:"tweets"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// RepliesView lists the replies to a tweet.
type RepliesView struct {
	Replies []TweetView `json:"replies"`
}

// NotificationsView lists notifications newest first.
type NotificationsView struct {
	Notifications []NotificationView `json:"notifications"`
}

// MessagesView is a direct message conversation.
type MessagesView struct {
	Messages []MessageView `json:"messages"`
}

// UserIDView carries the numeric id of a handle.
type UserIDView struct {
	UserID string `json:"user_id"`
}

// CreatedTweet identifies a freshly published tweet.
type CreatedTweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Ack is the acknowledgement returned by write actions.
type Ack struct {
	Response string `json:"response"`
}
