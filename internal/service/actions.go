package service

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/Laisky/errors/v2"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/normalize"
)

// TweetRequest is the input of CreateTweet and QuoteTweet.
//
// Blank ImagePaths are dropped; AltTexts[i] belongs to the i-th remaining
// image. AttachmentURL takes precedence over ReplyTo.
type TweetRequest struct {
	Content       string
	ImagePaths    []string
	AltTexts      []string
	ReplyTo       string
	AttachmentURL string
}

// CreateTweet publishes a plain tweet, a quote (AttachmentURL) or a reply
// (ReplyTo), optionally with images.
func (s *Service) CreateTweet(ctx context.Context, req TweetRequest) (normalize.CreatedTweet, error) {
	if err := required(req.Content, "Content is required to create a tweet"); err != nil {
		return normalize.CreatedTweet{}, err
	}
	paths := imagePaths(req.ImagePaths)
	if len(paths) > maxImages {
		return normalize.CreatedTweet{}, invalid("At most 4 images can be attached to a tweet")
	}

	draft := twitter.TweetDraft{Text: req.Content}
	switch {
	case req.AttachmentURL != "":
		draft.AttachmentURL = req.AttachmentURL
	case req.ReplyTo != "":
		draft.ReplyTo = req.ReplyTo
	}

	if len(paths) > 0 {
		ids, err := s.uploadMedia(ctx, paths, req.AltTexts)
		if err != nil {
			return normalize.CreatedTweet{}, failed("Error posting tweet", err)
		}
		draft.MediaIDs = ids
	}

	created, err := s.client.CreateTweet(ctx, draft)
	if err != nil {
		return normalize.CreatedTweet{}, failed("Error posting tweet", err)
	}
	if created == nil {
		return normalize.CreatedTweet{}, failed("Error posting tweet", errors.New("empty response"))
	}
	slog.Info("tweet created", slog.String("tweet_id", created.ID),
		slog.Bool("quote", draft.AttachmentURL != ""), slog.Bool("reply", draft.ReplyTo != ""),
		slog.Int("media", len(draft.MediaIDs)))
	return normalize.CreatedTweet{ID: created.ID, Text: created.Text}, nil
}

// QuoteTweet publishes a quote of AttachmentURL. ReplyTo is ignored.
func (s *Service) QuoteTweet(ctx context.Context, req TweetRequest) (normalize.CreatedTweet, error) {
	if err := required(req.Content, "Content is required to create a tweet"); err != nil {
		return normalize.CreatedTweet{}, err
	}
	if err := required(req.AttachmentURL, "attachment_url is required to quote a tweet"); err != nil {
		return normalize.CreatedTweet{}, err
	}
	req.ReplyTo = ""
	return s.CreateTweet(ctx, req)
}

// uploadMedia uploads paths in order. When any alt text is set, each image
// gets its own (non-blank) alt text; otherwise only the first image gets
// metadata, without alt text.
func (s *Service) uploadMedia(ctx context.Context, paths, altTexts []string) ([]string, error) {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id, err := s.client.UploadMedia(ctx, p)
		if err != nil {
			return nil, errors.Wrap(err, "Error uploading media")
		}
		ids = append(ids, id)
	}

	if !anyNonBlank(altTexts) {
		if err := s.client.CreateMediaMetadata(ctx, ids[0], ""); err != nil {
			return nil, errors.Wrap(err, "Error uploading media")
		}
		return ids, nil
	}
	for i, id := range ids {
		if i >= len(altTexts) || strings.TrimSpace(altTexts[i]) == "" {
			continue
		}
		if err := s.client.CreateMediaMetadata(ctx, id, altTexts[i]); err != nil {
			return nil, errors.Wrap(err, "Error uploading media")
		}
	}
	return ids, nil
}

func imagePaths(in []string) []string {
	var out []string
	for _, p := range in {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func anyNonBlank(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Retweet reposts tweet id.
func (s *Service) Retweet(ctx context.Context, id string) (normalize.Ack, error) {
	if err := required(id, "Tweet ID is required"); err != nil {
		return normalize.Ack{}, err
	}
	if _, err := s.client.Retweet(ctx, id); err != nil {
		return normalize.Ack{}, failed("Error retweeting", err)
	}
	return normalize.Ack{Response: "Retweeted successfully"}, nil
}

// Like favorites tweet id.
func (s *Service) Like(ctx context.Context, id string) (normalize.Ack, error) {
	return s.tweetAction(ctx, id, s.client.FavoriteTweet, "Error liking tweet", "Tweet liked successfully")
}

// Unlike removes a favorite.
func (s *Service) Unlike(ctx context.Context, id string) (normalize.Ack, error) {
	return s.tweetAction(ctx, id, s.client.UnfavoriteTweet, "Error unliking tweet", "Tweet unliked successfully")
}

// Bookmark adds tweet id to the bookmarks.
func (s *Service) Bookmark(ctx context.Context, id string) (normalize.Ack, error) {
	return s.tweetAction(ctx, id, s.client.CreateBookmark, "Error bookmarking tweet", "Tweet bookmarked successfully")
}

// Unbookmark removes tweet id from the bookmarks.
func (s *Service) Unbookmark(ctx context.Context, id string) (normalize.Ack, error) {
	return s.tweetAction(ctx, id, s.client.DeleteBookmark, "Error deleting bookmark", "Removed bookmark successfully")
}

func (s *Service) tweetAction(ctx context.Context, id string, do func(context.Context, string) error, prefix, ack string) (normalize.Ack, error) {
	if err := required(id, "Tweet ID is required"); err != nil {
		return normalize.Ack{}, err
	}
	if err := do(ctx, id); err != nil {
		return normalize.Ack{}, failed(prefix, err)
	}
	return normalize.Ack{Response: ack}, nil
}

// Follow follows userID.
func (s *Service) Follow(ctx context.Context, userID string) (normalize.Ack, error) {
	return s.userAction(ctx, userID, s.client.Follow, "Error following user", "User followed successfully")
}

// Unfollow stops following userID.
func (s *Service) Unfollow(ctx context.Context, userID string) (normalize.Ack, error) {
	return s.userAction(ctx, userID, s.client.Unfollow, "Error unfollowing user", "User unfollowed successfully")
}

// Block blocks userID.
func (s *Service) Block(ctx context.Context, userID string) (normalize.Ack, error) {
	return s.userAction(ctx, userID, s.client.Block, "Error blocking user", "User blocked successfully")
}

// Unblock lifts a block on userID.
func (s *Service) Unblock(ctx context.Context, userID string) (normalize.Ack, error) {
	return s.userAction(ctx, userID, s.client.Unblock, "Error unblocking user", "User unblocked successfully")
}

func (s *Service) userAction(ctx context.Context, userID string, do func(context.Context, string) error, prefix, ack string) (normalize.Ack, error) {
	if err := required(userID, "User ID is required"); err != nil {
		return normalize.Ack{}, err
	}
	if err := do(ctx, userID); err != nil {
		return normalize.Ack{}, failed(prefix, err)
	}
	return normalize.Ack{Response: ack}, nil
}

// SendMessage sends a direct message to userID.
func (s *Service) SendMessage(ctx context.Context, userID, text string) (normalize.Ack, error) {
	if err := required(userID, "User ID is required"); err != nil {
		return normalize.Ack{}, err
	}
	if err := required(text, "Message text is required"); err != nil {
		return normalize.Ack{}, err
	}
	if _, err := s.client.SendDM(ctx, userID, text); err != nil {
		return normalize.Ack{}, failed("Error sending message", err)
	}
	return normalize.Ack{Response: "Message sent successfully"}, nil
}
