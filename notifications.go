package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"
)

// Notifications fetches the viewer's "All" notification timeline.
func (c *Client) Notifications(ctx context.Context, count int) ([]*Notification, error) {
	q := url.Values{
		"count":                             {strconv.Itoa(count)},
		"include_profile_interstitial_type": {"1"},
		"include_blocking":                  {"1"},
		"include_blocked_by":                {"1"},
		"include_followed_by":               {"1"},
		"include_want_retweets":             {"1"},
		"include_mute_edge":                 {"1"},
		"include_can_dm":                    {"1"},
		"skip_status":                       {"1"},
		"cards_platform":                    {"Web-12"},
		"include_cards":                     {"1"},
		"include_ext_alt_text":              {"true"},
		"include_quote_count":               {"true"},
		"include_reply_count":               {"1"},
		"tweet_mode":                        {"extended"},
		"include_entities":                  {"true"},
		"include_user_entities":             {"true"},
	}
	body, err := c.getAs(ctx, c.primary, "Notifications", restEndpoints["Notifications"]+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("Notifications: %w", err)
	}
	return parseNotifications(body)
}

// parseNotifications resolves timeline entries against globalObjects, keeping
// timeline order.
func parseNotifications(body []byte) ([]*Notification, error) {
	globals, _, _, err := jsonparser.Get(body, "globalObjects")
	if err != nil {
		return nil, fmt.Errorf("notifications: missing globalObjects: %w", err)
	}

	var ids []string
	_, err = jsonparser.ArrayEach(body, func(ins []byte, _ jsonparser.ValueType, _ int, _ error) {
		jsonparser.ArrayEach(ins, func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
			if id, err := jsonparser.GetString(entry, "content", "item", "content", "notification", "id"); err == nil {
				ids = append(ids, id)
			}
		}, "addEntries", "entries")
	}, "timeline", "instructions")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("notifications timeline: %w", err)
	}

	out := make([]*Notification, 0, len(ids))
	for _, id := range ids {
		raw, _, _, err := jsonparser.Get(globals, "notifications", id)
		if err != nil {
			continue
		}
		n := &Notification{ID: id}
		n.Message, _ = jsonparser.GetString(raw, "message", "text")

		if uid, err := jsonparser.GetString(raw, "template", "aggregateUserActionsV1", "fromUsers", "[0]", "user", "id"); err == nil {
			if u, _, _, err := jsonparser.Get(globals, "users", uid); err == nil {
				n.FromUser = legacyUser(u)
			}
		}
		if tid, err := jsonparser.GetString(raw, "template", "aggregateUserActionsV1", "targetObjects", "[0]", "tweet", "id"); err == nil {
			if t, _, _, err := jsonparser.Get(globals, "tweets", tid); err == nil {
				n.Tweet = legacyTweet(t)
				if u, _, _, err := jsonparser.Get(globals, "users", n.Tweet.AuthorID); err == nil {
					n.Tweet.Author = legacyUser(u)
				}
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// legacyUser decodes a v1.1-style user object.
func legacyUser(raw []byte) *TwitterUser {
	u := &TwitterUser{}
	u.ID, _ = jsonparser.GetString(raw, "id_str")
	u.Handle, _ = jsonparser.GetString(raw, "screen_name")
	u.DisplayName, _ = jsonparser.GetString(raw, "name")
	u.Bio, _ = jsonparser.GetString(raw, "description")
	u.ProfileImageURL, _ = jsonparser.GetString(raw, "profile_image_url_https")
	u.BannerURL, _ = jsonparser.GetString(raw, "profile_banner_url")
	u.IsVerified, _ = jsonparser.GetBoolean(raw, "verified")
	followers, _ := jsonparser.GetInt(raw, "followers_count")
	following, _ := jsonparser.GetInt(raw, "friends_count")
	statuses, _ := jsonparser.GetInt(raw, "statuses_count")
	u.Followers, u.Following, u.TweetCount = int(followers), int(following), int(statuses)
	created, _ := jsonparser.GetString(raw, "created_at")
	u.CreatedAt = parseTwitterTime(created)
	return u
}

// legacyTweet decodes a v1.1-style tweet object.
func legacyTweet(raw []byte) *Tweet {
	t := &Tweet{}
	t.ID, _ = jsonparser.GetString(raw, "id_str")
	t.AuthorID, _ = jsonparser.GetString(raw, "user_id_str")
	t.Text, _ = jsonparser.GetString(raw, "full_text")
	if t.Text == "" {
		t.Text, _ = jsonparser.GetString(raw, "text")
	}
	t.CreatedAtRaw, _ = jsonparser.GetString(raw, "created_at")
	t.CreatedAt = parseTwitterTime(t.CreatedAtRaw)
	t.InReplyTo, _ = jsonparser.GetString(raw, "in_reply_to_status_id_str")
	t.Favorited, _ = jsonparser.GetBoolean(raw, "favorited")
	return t
}
