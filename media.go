package twitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

const (
	mediaUploadEndpoint = "MediaUpload"
	maxStatusPolls      = 20
)

// UploadMedia uploads a local image, GIF or video and returns its media id.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media %s: %w", path, err)
	}
	mediaType := detectMediaType(path, data)

	body, err := c.postForm(ctx, mediaUploadEndpoint, uploadURL, url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(data))},
		"media_type":     {mediaType},
		"media_category": {mediaCategory(mediaType)},
	})
	if err != nil {
		return "", fmt.Errorf("media INIT: %w", err)
	}
	mediaID, err := jsonparser.GetString(body, "media_id_string")
	if err != nil {
		return "", fmt.Errorf("media INIT: no media_id_string: %s", truncateBytes(body, 200))
	}

	for seg, off := 0, 0; off < len(data); seg++ {
		end := min(off+c.cfg.MediaChunkSize, len(data))
		_, err := c.postForm(ctx, mediaUploadEndpoint, uploadURL, url.Values{
			"command":       {"APPEND"},
			"media_id":      {mediaID},
			"segment_index": {strconv.Itoa(seg)},
			"media_data":    {base64.StdEncoding.EncodeToString(data[off:end])},
		})
		if err != nil {
			return "", fmt.Errorf("media APPEND segment %d: %w", seg, err)
		}
		off = end
	}

	body, err = c.postForm(ctx, mediaUploadEndpoint, uploadURL, url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	})
	if err != nil {
		return "", fmt.Errorf("media FINALIZE: %w", err)
	}
	if err := c.awaitProcessing(ctx, mediaID, body); err != nil {
		return "", err
	}

	slog.Info("media uploaded", slog.String("media_id", mediaID), slog.String("type", mediaType), slog.Int("bytes", len(data)))
	return mediaID, nil
}

// awaitProcessing polls STATUS while the server reports asynchronous processing.
func (c *Client) awaitProcessing(ctx context.Context, mediaID string, body []byte) error {
	for range maxStatusPolls {
		state, _ := jsonparser.GetString(body, "processing_info", "state")
		switch state {
		case "", "succeeded":
			return nil
		case "failed":
			msg, _ := jsonparser.GetString(body, "processing_info", "error", "message")
			return fmt.Errorf("media %s processing failed: %s", mediaID, msg)
		}

		wait, err := jsonparser.GetInt(body, "processing_info", "check_after_secs")
		if err != nil || wait <= 0 {
			wait = 1
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}

		status := uploadURL + "?" + url.Values{"command": {"STATUS"}, "media_id": {mediaID}}.Encode()
		if body, err = c.getAs(ctx, c.primary, mediaUploadEndpoint, status); err != nil {
			return fmt.Errorf("media STATUS: %w", err)
		}
	}
	return fmt.Errorf("media %s still processing after %d polls", mediaID, maxStatusPolls)
}

// CreateMediaMetadata sets the alt text of an uploaded image.
func (c *Client) CreateMediaMetadata(ctx context.Context, mediaID, altText string) error {
	payload, err := json.Marshal(map[string]any{
		"media_id": mediaID,
		"alt_text": map[string]string{"text": altText},
	})
	if err != nil {
		return err
	}
	_, _, err = c.execute(ctx, apiCall{
		endpoint:    "MediaMetadata",
		method:      "POST",
		url:         restEndpoints["MediaMetadata"],
		body:        payload,
		contentType: contentJSON,
		acc:         c.primary,
		mutation:    true,
	})
	return err
}

// detectMediaType resolves a MIME type from the extension, then the content.
func detectMediaType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func mediaCategory(mediaType string) string {
	switch {
	case mediaType == "image/gif":
		return "tweet_gif"
	case strings.HasPrefix(mediaType, "video/"):
		return "tweet_video"
	}
	return "tweet_image"
}
