package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// twitterTimeLayout is the created_at format of the legacy payloads.
const twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

// parseUserByScreenName parses the UserByScreenName GraphQL response.
func parseUserByScreenName(body []byte) (*TwitterUser, error) {
	var raw struct {
		Data struct {
			User struct {
				Result userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal UserByScreenName: %w", err)
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s", raw.Errors[0].Message)
	}
	return parseUserResult(raw.Data.User.Result)
}

// parseUserList parses the Following response.
func parseUserList(body []byte) ([]*TwitterUser, string, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal user list: %w", err)
	}
	users, cursor := extractUsersFromTimeline(raw.Data.User.Result.Timeline.Timeline)
	return users, cursor, nil
}

// parseTweetTimeline parses the UserTweets response.
func parseTweetTimeline(body []byte, authorID string) ([]*Tweet, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal tweet timeline: %w", err)
	}
	tl := raw.Data.User.Result.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = raw.Data.User.Result.TimelineV2.Timeline
	}
	page := extractTweetsFromTimeline(tl, authorID)
	return page.Tweets, nil
}

// parseSearchTimeline parses a SearchTimeline response for tweets.
func parseSearchTimeline(body []byte) (*TweetPage, error) {
	tl, err := searchTimeline(body)
	if err != nil {
		return nil, err
	}
	return extractTweetsFromTimeline(tl, ""), nil
}

// parseUserSearch parses a SearchTimeline response with product People.
func parseUserSearch(body []byte) ([]*TwitterUser, error) {
	tl, err := searchTimeline(body)
	if err != nil {
		return nil, err
	}
	users, _ := extractUsersFromTimeline(tl)
	return users, nil
}

func searchTimeline(body []byte) (timelineObj, error) {
	var raw struct {
		Data struct {
			SearchByRawQuery struct {
				SearchTimeline struct {
					Timeline timelineObj `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return timelineObj{}, fmt.Errorf("unmarshal search timeline: %w", err)
	}
	return raw.Data.SearchByRawQuery.SearchTimeline.Timeline, nil
}

// parseHomeTimeline parses the HomeLatestTimeline response.
func parseHomeTimeline(body []byte) (*TweetPage, error) {
	var raw struct {
		Data struct {
			Home struct {
				HomeTimelineURT timelineObj `json:"home_timeline_urt"`
			} `json:"home"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal home timeline: %w", err)
	}
	return extractTweetsFromTimeline(raw.Data.Home.HomeTimelineURT, ""), nil
}

// parseBookmarks parses the Bookmarks response.
func parseBookmarks(body []byte) (*TweetPage, error) {
	var raw struct {
		Data struct {
			BookmarkTimelineV2 struct {
				Timeline timelineObj `json:"timeline"`
			} `json:"bookmark_timeline_v2"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal bookmarks: %w", err)
	}
	return extractTweetsFromTimeline(raw.Data.BookmarkTimelineV2.Timeline, ""), nil
}

// parseTweetDetail parses a TweetDetail conversation. The focal tweet gets
// the first tweet of every conversation thread as its replies.
func parseTweetDetail(body []byte, focalID string) (*Tweet, error) {
	var raw struct {
		Data struct {
			Conversation timelineObj `json:"threaded_conversation_with_injections_v2"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal TweetDetail: %w", err)
	}

	var focal *Tweet
	var replies []*Tweet
	for _, entry := range raw.Data.Conversation.entries() {
		switch {
		case entry.EntryID == "tweet-"+focalID:
			t, err := tweetFromItem(entry.Content.ItemContent, "")
			if err != nil {
				return nil, fmt.Errorf("focal tweet %s: %w", focalID, err)
			}
			focal = t
		case strings.HasPrefix(entry.EntryID, "conversationthread-"):
			for _, it := range entry.Content.Items {
				t, err := tweetFromItem(it.Item.ItemContent, "")
				if err != nil {
					continue
				}
				replies = append(replies, t)
				break
			}
		}
	}
	if focal == nil {
		if len(raw.Errors) > 0 {
			return nil, fmt.Errorf("twitter API error: %s", raw.Errors[0].Message)
		}
		return nil, fmt.Errorf("tweet %s not found in conversation", focalID)
	}
	focal.Replies = replies
	return focal, nil
}

// parseCreateTweet extracts the created tweet from a CreateTweet mutation response.
func parseCreateTweet(body []byte) (*Tweet, error) {
	var raw struct {
		Data struct {
			CreateTweet struct {
				TweetResults struct {
					Result tweetResult `json:"result"`
				} `json:"tweet_results"`
			} `json:"create_tweet"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal CreateTweet: %w", err)
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("CreateTweet API error: %s", raw.Errors[0].Message)
	}
	t, err := parseTweetResult(raw.Data.CreateTweet.TweetResults.Result, "")
	if err != nil {
		return nil, fmt.Errorf("CreateTweet returned no tweet: %s", truncateBytes(body, 300))
	}
	return t, nil
}

// parseCreateRetweet extracts the retweet id from a CreateRetweet response.
func parseCreateRetweet(body []byte) (string, error) {
	var raw struct {
		Data struct {
			CreateRetweet struct {
				RetweetResults struct {
					Result struct {
						RestID string `json:"rest_id"`
					} `json:"result"`
				} `json:"retweet_results"`
			} `json:"create_retweet"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unmarshal CreateRetweet: %w", err)
	}
	id := raw.Data.CreateRetweet.RetweetResults.Result.RestID
	if id == "" {
		return "", fmt.Errorf("CreateRetweet returned empty id: %s", truncateBytes(body, 300))
	}
	return id, nil
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

// entries flattens every instruction's entries, including single-entry replacements.
func (tl timelineObj) entries() []timelineEntry {
	var out []timelineEntry
	for _, ins := range tl.Instructions {
		out = append(out, ins.Entries...)
		if ins.Entry != nil {
			out = append(out, *ins.Entry)
		}
	}
	return out
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Items       []moduleItem    `json:"items"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

type moduleItem struct {
	EntryID string `json:"entryId"`
	Item    struct {
		ItemContent json.RawMessage `json:"itemContent"`
	} `json:"item"`
}

func (c timelineContent) isCursor() bool {
	return c.EntryType == "TimelineTimelineCursor" || c.TypeName == "TimelineTimelineCursor"
}

// itemContents returns the item payloads of a single-item or module entry.
func (c timelineContent) itemContents() []json.RawMessage {
	if c.ItemContent != nil {
		return []json.RawMessage{c.ItemContent}
	}
	out := make([]json.RawMessage, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Item.ItemContent != nil {
			out = append(out, it.Item.ItemContent)
		}
	}
	return out
}

type userResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Core     struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		CreatedAt  string `json:"created_at"`
	} `json:"core"`
	Avatar struct {
		ImageURL string `json:"image_url"`
	} `json:"avatar"`
	Legacy struct {
		Name             string `json:"name"`
		ScreenName       string `json:"screen_name"`
		FollowersCount   int    `json:"followers_count"`
		FriendsCount     int    `json:"friends_count"`
		StatusesCount    int    `json:"statuses_count"`
		CreatedAt        string `json:"created_at"`
		Verified         bool   `json:"verified"`
		Description      string `json:"description"`
		ProfileImageURL  string `json:"profile_image_url_https"`
		ProfileBannerURL string `json:"profile_banner_url"`
	} `json:"legacy"`
	IsBlueVerified bool `json:"is_blue_verified"`
}

type mediaEntity struct {
	IDStr         string `json:"id_str"`
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
}

type tweetResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`

	// set for TweetWithVisibilityResults wrappers
	Tweet *tweetResult `json:"tweet"`

	Core struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	QuotedStatusResult struct {
		Result *tweetResult `json:"result"`
	} `json:"quoted_status_result"`
	Legacy struct {
		FullText             string `json:"full_text"`
		CreatedAt            string `json:"created_at"`
		FavoriteCount        int    `json:"favorite_count"`
		RetweetCount         int    `json:"retweet_count"`
		QuoteCount           int    `json:"quote_count"`
		ReplyCount           int    `json:"reply_count"`
		Favorited            bool   `json:"favorited"`
		Bookmarked           bool   `json:"bookmarked"`
		IsQuoteStatus        bool   `json:"is_quote_status"`
		InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
		UserIDStr            string `json:"user_id_str"`
		Entities             struct {
			Media []mediaEntity `json:"media"`
		} `json:"entities"`
		ExtendedEntities struct {
			Media []mediaEntity `json:"media"`
		} `json:"extended_entities"`
	} `json:"legacy"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`
}

// --- Extraction helpers ---

func extractUsersFromTimeline(tl timelineObj) ([]*TwitterUser, string) {
	var users []*TwitterUser
	var nextCursor string

	for _, entry := range tl.entries() {
		if entry.Content.isCursor() {
			if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
				nextCursor = entry.Content.Value
			}
			continue
		}
		for _, content := range entry.Content.itemContents() {
			var item struct {
				TypeName    string `json:"__typename"`
				UserResults struct {
					Result userResult `json:"result"`
				} `json:"user_results"`
			}
			if err := json.Unmarshal(content, &item); err != nil || item.TypeName != "TimelineUser" {
				continue
			}
			u, err := parseUserResult(item.UserResults.Result)
			if err != nil {
				slog.Debug("skip user parse error", slog.Any("error", err))
				continue
			}
			users = append(users, u)
		}
	}
	return users, nextCursor
}

func extractTweetsFromTimeline(tl timelineObj, defaultAuthorID string) *TweetPage {
	page := &TweetPage{}
	for _, entry := range tl.entries() {
		if entry.Content.isCursor() {
			if entry.Content.CursorType == "Bottom" {
				page.NextCursor = entry.Content.Value
			}
			continue
		}
		for _, content := range entry.Content.itemContents() {
			t, err := tweetFromItem(content, defaultAuthorID)
			if err != nil {
				slog.Debug("skip tweet parse error", slog.String("entry", entry.EntryID), slog.Any("error", err))
				continue
			}
			page.Tweets = append(page.Tweets, t)
		}
	}
	return page
}

// tweetFromItem decodes a TimelineTweet item payload.
func tweetFromItem(content json.RawMessage, defaultAuthorID string) (*Tweet, error) {
	var item struct {
		TypeName     string `json:"__typename"`
		TweetResults struct {
			Result tweetResult `json:"result"`
		} `json:"tweet_results"`
	}
	if err := json.Unmarshal(content, &item); err != nil {
		return nil, err
	}
	if item.TypeName != "TimelineTweet" {
		return nil, fmt.Errorf("not a tweet item (%s)", item.TypeName)
	}
	return parseTweetResult(item.TweetResults.Result, defaultAuthorID)
}

func parseTwitterTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(twitterTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseUserResult(r userResult) (*TwitterUser, error) {
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted)")
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty user rest_id (typename=%s)", r.TypeName)
	}
	return &TwitterUser{
		ID:              r.RestID,
		Handle:          firstNonEmpty(r.Core.ScreenName, r.Legacy.ScreenName),
		DisplayName:     firstNonEmpty(r.Core.Name, r.Legacy.Name),
		Bio:             strings.TrimSpace(r.Legacy.Description),
		Followers:       r.Legacy.FollowersCount,
		Following:       r.Legacy.FriendsCount,
		TweetCount:      r.Legacy.StatusesCount,
		CreatedAt:       parseTwitterTime(firstNonEmpty(r.Core.CreatedAt, r.Legacy.CreatedAt)),
		IsVerified:      r.Legacy.Verified || r.IsBlueVerified,
		ProfileImageURL: firstNonEmpty(r.Avatar.ImageURL, r.Legacy.ProfileImageURL),
		BannerURL:       r.Legacy.ProfileBannerURL,
	}, nil
}

func parseTweetResult(r tweetResult, defaultAuthorID string) (*Tweet, error) {
	if r.TypeName == "TweetWithVisibilityResults" && r.Tweet != nil {
		r = *r.Tweet
	}
	if r.TypeName == "TweetTombstone" || r.TypeName == "TweetUnavailable" {
		return nil, fmt.Errorf("tweet unavailable (%s)", r.TypeName)
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty tweet rest_id")
	}

	t := &Tweet{
		ID:            r.RestID,
		AuthorID:      firstNonEmpty(r.Legacy.UserIDStr, defaultAuthorID),
		Text:          firstNonEmpty(r.NoteTweet.NoteTweetResults.Result.Text, r.Legacy.FullText),
		CreatedAt:     parseTwitterTime(r.Legacy.CreatedAt),
		CreatedAtRaw:  r.Legacy.CreatedAt,
		Likes:         r.Legacy.FavoriteCount,
		Retweets:      r.Legacy.RetweetCount,
		Quotes:        r.Legacy.QuoteCount,
		ReplyCount:    r.Legacy.ReplyCount,
		Favorited:     r.Legacy.Favorited,
		Bookmarked:    r.Legacy.Bookmarked,
		IsQuoteStatus: r.Legacy.IsQuoteStatus,
		InReplyTo:     r.Legacy.InReplyToStatusIDStr,
	}
	if r.Views.Count != "" {
		t.Views, _ = strconv.Atoi(r.Views.Count)
	}

	if u, err := parseUserResult(r.Core.UserResults.Result); err == nil {
		t.Author = u
		if t.AuthorID == "" {
			t.AuthorID = u.ID
		}
	}

	media := r.Legacy.ExtendedEntities.Media
	if len(media) == 0 {
		media = r.Legacy.Entities.Media
	}
	for _, m := range media {
		t.Media = append(t.Media, Media{ID: m.IDStr, Type: m.Type, MediaURLHTTPS: m.MediaURLHTTPS})
	}

	if q := r.QuotedStatusResult.Result; q != nil {
		quote, err := parseTweetResult(*q, "")
		if err != nil {
			slog.Debug("skip quoted tweet", slog.String("tweet", t.ID), slog.Any("error", err))
		} else {
			t.Quote = quote
		}
	}
	return t, nil
}
