package twitter

import (
	"context"
	"fmt"
)

// SearchProduct selects the SearchTimeline tab.
type SearchProduct string

const (
	SearchTop    SearchProduct = "Top"
	SearchLatest SearchProduct = "Latest"
	SearchPeople SearchProduct = "People"
)

// maxFollowingPage is the page size the Following endpoint accepts.
const maxFollowingPage = 100

// queryURL builds the GET URL of a GraphQL query operation.
func queryURL(operation string, variables map[string]any, fieldToggles ...map[string]any) (string, error) {
	url, err := EndpointURL(operation)
	if err != nil {
		return "", err
	}
	return addGraphQLParams(url, variables, Endpoints[operation].Features, fieldToggles...), nil
}

// query runs a GraphQL query as acc; a nil acc lets the pool pick.
func (c *Client) query(ctx context.Context, acc *Account, operation string, variables map[string]any, fieldToggles ...map[string]any) ([]byte, error) {
	url, err := queryURL(operation, variables, fieldToggles...)
	if err != nil {
		return nil, err
	}
	body, err := c.getAs(ctx, acc, operation, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return body, nil
}

// GetUserByScreenName fetches a user profile by Twitter handle.
func (c *Client) GetUserByScreenName(ctx context.Context, handle string) (*TwitterUser, error) {
	body, err := c.query(ctx, nil, "UserByScreenName", map[string]any{
		"screen_name":              handle,
		"withSafetyModeUserFields": true,
	})
	if err != nil {
		return nil, err
	}
	return parseUserByScreenName(body)
}

// GetFollowing fetches up to maxCount accounts userID follows.
func (c *Client) GetFollowing(ctx context.Context, userID string, maxCount int) ([]*TwitterUser, error) {
	var users []*TwitterUser
	var cursor string

	for len(users) < maxCount {
		if err := ctx.Err(); err != nil {
			return users, err
		}

		variables := map[string]any{
			"userId":                 userID,
			"count":                  min(maxFollowingPage, maxCount-len(users)),
			"includePromotedContent": false,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		body, err := c.query(ctx, nil, "Following", variables)
		if err != nil {
			return users, err
		}

		batch, next, err := parseUserList(body)
		if err != nil {
			return users, fmt.Errorf("parse Following: %w", err)
		}
		users = append(users, batch...)
		if next == "" || len(batch) == 0 {
			break
		}
		cursor = next
	}
	if len(users) > maxCount {
		users = users[:maxCount]
	}
	return users, nil
}

// GetUserTweets fetches recent tweets for a user.
func (c *Client) GetUserTweets(ctx context.Context, userID string, count int) ([]*Tweet, error) {
	body, err := c.query(ctx, nil, "UserTweets", map[string]any{
		"userId":                                 userID,
		"count":                                  count,
		"includePromotedContent":                 false,
		"withQuickPromoteEligibilityTweetFields": true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	})
	if err != nil {
		return nil, err
	}
	tweets, err := parseTweetTimeline(body, userID)
	if err != nil {
		return nil, err
	}
	return capTweets(tweets, count), nil
}

func (c *Client) search(ctx context.Context, query string, product SearchProduct, count int) ([]byte, error) {
	return c.query(ctx, nil, "SearchTimeline", map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     string(product),
	}, map[string]any{"withArticleRichContentState": false})
}

// SearchTweets searches tweets on the Top or Latest tab.
func (c *Client) SearchTweets(ctx context.Context, query string, product SearchProduct, count int) ([]*Tweet, error) {
	body, err := c.search(ctx, query, product, count)
	if err != nil {
		return nil, err
	}
	page, err := parseSearchTimeline(body)
	if err != nil {
		return nil, err
	}
	return capTweets(page.Tweets, count), nil
}

// SearchUsers searches accounts matching query.
func (c *Client) SearchUsers(ctx context.Context, query string, count int) ([]*TwitterUser, error) {
	body, err := c.search(ctx, query, SearchPeople, count)
	if err != nil {
		return nil, err
	}
	users, err := parseUserSearch(body)
	if err != nil {
		return nil, err
	}
	if len(users) > count {
		users = users[:count]
	}
	return users, nil
}

// GetTweetByID fetches a tweet with the first reply of every conversation thread.
func (c *Client) GetTweetByID(ctx context.Context, id string) (*Tweet, error) {
	body, err := c.query(ctx, nil, "TweetDetail", map[string]any{
		"focalTweetId":                           id,
		"with_rux_injections":                    false,
		"rankingMode":                            "Relevance",
		"includePromotedContent":                 false,
		"withCommunity":                          true,
		"withQuickPromoteEligibilityTweetFields": true,
		"withBirdwatchNotes":                     true,
		"withVoice":                              true,
	}, map[string]any{
		"withArticleRichContentState": true,
		"withArticlePlainText":        false,
	})
	if err != nil {
		return nil, err
	}
	return parseTweetDetail(body, id)
}

// HomeLatestTimeline fetches the viewer's chronological home timeline.
func (c *Client) HomeLatestTimeline(ctx context.Context, count int, seenIDs []string, cursor string) (*TweetPage, error) {
	variables := map[string]any{
		"count":                  count,
		"includePromotedContent": false,
		"latestControlAvailable": true,
		"requestContext":         "launch",
	}
	if len(seenIDs) > 0 {
		variables["seenTweetIds"] = seenIDs
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	body, err := c.query(ctx, c.primary, "HomeLatestTimeline", variables)
	if err != nil {
		return nil, err
	}
	return parseHomeTimeline(body)
}

// Bookmarks fetches up to count of the viewer's bookmarks.
func (c *Client) Bookmarks(ctx context.Context, count int) ([]*Tweet, error) {
	body, err := c.query(ctx, c.primary, "Bookmarks", map[string]any{
		"count":                  count,
		"includePromotedContent": false,
	})
	if err != nil {
		return nil, err
	}
	page, err := parseBookmarks(body)
	if err != nil {
		return nil, err
	}
	return capTweets(page.Tweets, count), nil
}

func capTweets(tweets []*Tweet, n int) []*Tweet {
	if n > 0 && len(tweets) > n {
		return tweets[:n]
	}
	return tweets
}
