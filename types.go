package twitter

import "time"

// TwitterUser represents a Twitter/X account profile.
type TwitterUser struct {
	ID              string
	Handle          string
	DisplayName     string
	Bio             string
	Followers       int
	Following       int
	TweetCount      int
	CreatedAt       time.Time
	IsVerified      bool
	ProfileImageURL string
	BannerURL       string
}

// Media is a photo, video or GIF attached to a tweet.
type Media struct {
	ID            string
	Type          string
	MediaURLHTTPS string
}

// Tweet represents a single tweet.
//
// Quote and Author are nil when the payload did not carry them.
// CreatedAt is zero when CreatedAtRaw could not be parsed.
type Tweet struct {
	ID            string
	AuthorID      string
	Author        *TwitterUser
	Text          string
	CreatedAt     time.Time
	CreatedAtRaw  string
	Views         int
	Likes         int
	Retweets      int
	Quotes        int
	ReplyCount    int
	Favorited     bool
	Bookmarked    bool
	IsQuoteStatus bool
	Quote         *Tweet
	InReplyTo     string
	Media         []Media

	// Replies is only filled by GetTweetByID.
	Replies []*Tweet
}

// TweetPage is one page of a cursor-paginated timeline.
type TweetPage struct {
	Tweets     []*Tweet
	NextCursor string
}

// Notification is one entry of the viewer's notification timeline.
type Notification struct {
	ID       string
	Message  string
	FromUser *TwitterUser
	Tweet    *Tweet
}

// Message is a single direct message.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Text        string
	CreatedAt   time.Time
}

// TweetDraft describes a tweet to publish.
// AttachmentURL and ReplyTo are mutually exclusive; AttachmentURL wins.
type TweetDraft struct {
	Text          string
	MediaIDs      []string
	ReplyTo       string
	AttachmentURL string
}
