package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
)

// conversationID returns the one-to-one conversation id for two users:
// the numerically smaller id first.
func conversationID(a, b string) string {
	ids := []string{a, b}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids[0] + "-" + ids[1]
}

// DMHistory fetches the direct messages exchanged between the viewer and userID,
// newest first.
func (c *Client) DMHistory(ctx context.Context, userID string) ([]*Message, error) {
	viewerID, err := c.viewerID(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"context":                   {"FETCH_DM_CONVERSATION_HISTORY"},
		"include_conversation_info": {"true"},
		"dm_users":                  {"false"},
		"include_groups":            {"true"},
		"include_inbox_timelines":   {"true"},
	}
	endpoint := fmt.Sprintf(restEndpoints["DMConversation"], conversationID(viewerID, userID))
	body, err := c.getAs(ctx, c.primary, "DMConversation", endpoint+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("DMConversation: %w", err)
	}
	return parseDMEntries(body, "conversation_timeline", "entries")
}

// SendDM sends text to userID and returns the created message.
func (c *Client) SendDM(ctx context.Context, userID, text string) (*Message, error) {
	viewerID, err := c.viewerID(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]any{
		"conversation_id":     conversationID(viewerID, userID),
		"recipient_ids":       false,
		"request_id":          uuid.NewString(),
		"text":                text,
		"cards_platform":      "Web-12",
		"include_cards":       1,
		"include_quote_count": true,
		"dm_users":            false,
	})
	if err != nil {
		return nil, err
	}
	body, _, err := c.execute(ctx, apiCall{
		endpoint:    "DMNew",
		method:      "POST",
		url:         restEndpoints["DMNew"],
		body:        payload,
		contentType: contentJSON,
		acc:         c.primary,
		mutation:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("DMNew: %w", err)
	}
	msgs, err := parseDMEntries(body, "entries")
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("DMNew returned no message: %s", truncateBytes(body, 200))
	}
	return msgs[0], nil
}

// parseDMEntries decodes the message entries found at path; other entry
// kinds (joins, reactions) are skipped.
func parseDMEntries(body []byte, path ...string) ([]*Message, error) {
	var msgs []*Message
	_, err := jsonparser.ArrayEach(body, func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
		data, _, _, err := jsonparser.Get(entry, "message", "message_data")
		if err != nil {
			return
		}
		m := &Message{}
		m.ID, _ = jsonparser.GetString(data, "id")
		m.SenderID, _ = jsonparser.GetString(data, "sender_id")
		m.RecipientID, _ = jsonparser.GetString(data, "recipient_id")
		m.Text, _ = jsonparser.GetString(data, "text")
		if ms, err := jsonparser.GetString(data, "time"); err == nil {
			if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
				m.CreatedAt = time.UnixMilli(n).UTC()
			}
		}
		msgs = append(msgs, m)
	}, path...)
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("parse DM entries: %w", err)
	}
	return msgs, nil
}
