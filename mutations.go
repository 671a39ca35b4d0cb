package twitter

import (
	"context"
	"fmt"
	"net/url"
)

// CreateTweet publishes draft as the primary account.
func (c *Client) CreateTweet(ctx context.Context, draft TweetDraft) (*Tweet, error) {
	mediaEntities := make([]map[string]any, 0, len(draft.MediaIDs))
	for _, id := range draft.MediaIDs {
		mediaEntities = append(mediaEntities, map[string]any{"media_id": id, "tagged_users": []string{}})
	}
	variables := map[string]any{
		"tweet_text":   draft.Text,
		"dark_request": false,
		"media": map[string]any{
			"media_entities":     mediaEntities,
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []string{},
	}
	switch {
	case draft.AttachmentURL != "":
		variables["attachment_url"] = draft.AttachmentURL
	case draft.ReplyTo != "":
		variables["reply"] = map[string]any{
			"in_reply_to_tweet_id":   draft.ReplyTo,
			"exclude_reply_user_ids": []string{},
		}
	}

	body, err := c.mutateGraphQL(ctx, "CreateTweet", variables)
	if err != nil {
		return nil, err
	}
	return parseCreateTweet(body)
}

// Retweet retweets id and returns the id of the retweet.
func (c *Client) Retweet(ctx context.Context, id string) (string, error) {
	body, err := c.mutateGraphQL(ctx, "CreateRetweet", map[string]any{"tweet_id": id, "dark_request": false})
	if err != nil {
		return "", err
	}
	return parseCreateRetweet(body)
}

// FavoriteTweet likes id.
func (c *Client) FavoriteTweet(ctx context.Context, id string) error {
	_, err := c.mutateGraphQL(ctx, "FavoriteTweet", map[string]any{"tweet_id": id})
	return err
}

// UnfavoriteTweet removes the like from id.
func (c *Client) UnfavoriteTweet(ctx context.Context, id string) error {
	_, err := c.mutateGraphQL(ctx, "UnfavoriteTweet", map[string]any{"tweet_id": id})
	return err
}

// CreateBookmark bookmarks id.
func (c *Client) CreateBookmark(ctx context.Context, id string) error {
	_, err := c.mutateGraphQL(ctx, "CreateBookmark", map[string]any{"tweet_id": id})
	return err
}

// DeleteBookmark removes id from the bookmarks.
func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	_, err := c.mutateGraphQL(ctx, "DeleteBookmark", map[string]any{"tweet_id": id})
	return err
}

// Follow follows userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.userAction(ctx, "FriendshipCreate", userID)
}

// Unfollow unfollows userID.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.userAction(ctx, "FriendshipDelete", userID)
}

// Block blocks userID.
func (c *Client) Block(ctx context.Context, userID string) error {
	return c.userAction(ctx, "BlockCreate", userID)
}

// Unblock unblocks userID.
func (c *Client) Unblock(ctx context.Context, userID string) error {
	return c.userAction(ctx, "BlockDelete", userID)
}

func (c *Client) userAction(ctx context.Context, endpoint, userID string) error {
	form := url.Values{"user_id": {userID}}
	if endpoint == "FriendshipCreate" {
		form.Set("include_profile_interstitial_type", "1")
		form.Set("skip_status", "1")
	}
	if _, err := c.postForm(ctx, endpoint, restEndpoints[endpoint], form); err != nil {
		return fmt.Errorf("%s %s: %w", endpoint, userID, err)
	}
	return nil
}
