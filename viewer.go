package twitter

import (
	"context"
	"fmt"

	"github.com/buger/jsonparser"
)

// Viewer returns the profile of the primary account.
func (c *Client) Viewer(ctx context.Context) (*TwitterUser, error) {
	body, err := c.getAs(ctx, c.primary, "AccountSettings", restEndpoints["AccountSettings"])
	if err != nil {
		return nil, fmt.Errorf("AccountSettings: %w", err)
	}
	handle, err := jsonparser.GetString(body, "screen_name")
	if err != nil || handle == "" {
		return nil, fmt.Errorf("AccountSettings: no screen_name in %s", truncateBytes(body, 200))
	}
	u, err := c.GetUserByScreenName(ctx, handle)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.viewerUserID = u.ID
	c.mu.Unlock()
	return u, nil
}

// viewerID returns the primary account's user id, looking it up once.
func (c *Client) viewerID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.viewerUserID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	u, err := c.Viewer(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve viewer id: %w", err)
	}
	return u.ID, nil
}
