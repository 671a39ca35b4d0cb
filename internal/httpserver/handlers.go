package httpserver

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go-twitter-proxy/internal/normalize"
	"github.com/anatolykoptev/go-twitter-proxy/internal/service"
)

// tweetBody is the JSON body of POST /tweet and POST /quote.
type tweetBody struct {
	Content       string `json:"content"`
	ImagePath1    string `json:"image_path1"`
	ImagePath2    string `json:"image_path2"`
	ImagePath3    string `json:"image_path3"`
	ImagePath4    string `json:"image_path4"`
	AltText1      string `json:"alt_text1"`
	AltText2      string `json:"alt_text2"`
	AltText3      string `json:"alt_text3"`
	AltText4      string `json:"alt_text4"`
	ReplyTo       string `json:"reply_to"`
	AttachmentURL string `json:"attachment_url"`
}

// request maps the numbered slots onto a TweetRequest. Alt texts follow the
// images that remain once blank slots are dropped.
func (b tweetBody) request() service.TweetRequest {
	req := service.TweetRequest{
		Content:       b.Content,
		ReplyTo:       b.ReplyTo,
		AttachmentURL: b.AttachmentURL,
	}
	paths := []string{b.ImagePath1, b.ImagePath2, b.ImagePath3, b.ImagePath4}
	alts := []string{b.AltText1, b.AltText2, b.AltText3, b.AltText4}
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		req.ImagePaths = append(req.ImagePaths, p)
		req.AltTexts = append(req.AltTexts, alts[i])
	}
	return req
}

type sendMessageBody struct {
	Text string `json:"text"`
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string       `json:"error"`
	Kind  service.Kind `json:"kind"`
}

func statusFor(err error) int {
	if service.IsValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error(), Kind: service.KindOf(err)})
}

func (s *Server) reply(c *gin.Context, v any, err error) {
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// bindJSON decodes the body into dst; an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return &service.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// queryCount reads ?count, falling back to def.
func queryCount(c *gin.Context, def int) (int, error) {
	raw := c.Query("count")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &service.ValidationError{Message: "count must be a positive integer"}
	}
	return n, nil
}

func (s *Server) createTweet(c *gin.Context) {
	var body tweetBody
	if err := bindJSON(c, &body); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.svc.CreateTweet(c.Request.Context(), body.request())
	s.reply(c, gin.H{"response": created}, err)
}

func (s *Server) quoteTweet(c *gin.Context) {
	var body tweetBody
	if err := bindJSON(c, &body); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.svc.QuoteTweet(c.Request.Context(), body.request())
	s.reply(c, gin.H{"response": created}, err)
}

func (s *Server) homeFeed(c *gin.Context) {
	count, err := queryCount(c, service.DefaultCount)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	var seen []string
	for _, v := range c.QueryArray("seen_tweet_ids") {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				seen = append(seen, id)
			}
		}
	}
	feed, err := s.svc.HomeFeed(c.Request.Context(), count, seen, c.Query("cursor"))
	s.reply(c, feed, err)
}

func (s *Server) bookmarksFeed(c *gin.Context) {
	count, err := queryCount(c, service.DefaultCount)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	feed, err := s.svc.BookmarksFeed(c.Request.Context(), count)
	s.reply(c, feed, err)
}

func (s *Server) notifications(c *gin.Context) {
	count, err := queryCount(c, service.DefaultCount)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	v, err := s.svc.Notifications(c.Request.Context(), count)
	s.reply(c, v, err)
}

func (s *Server) currentUser(c *gin.Context) {
	v, err := s.svc.CurrentUser(c.Request.Context())
	s.reply(c, v, err)
}

func (s *Server) tweet(c *gin.Context) {
	v, err := s.svc.Tweet(c.Request.Context(), c.Param("id"))
	s.reply(c, v, err)
}

func (s *Server) tweetContext(c *gin.Context) {
	v, err := s.svc.TweetContext(c.Request.Context(), c.Param("id"))
	s.reply(c, v, err)
}

// replies reports every failure, including "no replies", as 400.
func (s *Server) replies(c *gin.Context) {
	v, err := s.svc.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ack adapts a write action keyed by the path parameter param.
func (s *Server) ack(param string, do func(context.Context, string) (normalize.Ack, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := do(c.Request.Context(), c.Param(param))
		s.reply(c, v, err)
	}
}

func (s *Server) userProfile(c *gin.Context) {
	count, err := queryCount(c, service.DefaultProfileTweets)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	v, err := s.svc.UserProfile(c.Request.Context(), c.Param("username"), count)
	s.reply(c, v, err)
}

func (s *Server) userID(c *gin.Context) {
	v, err := s.svc.UserID(c.Request.Context(), c.Param("username"))
	s.reply(c, v, err)
}

func (s *Server) directMessages(c *gin.Context) {
	v, err := s.svc.ChatHistory(c.Request.Context(), c.Param("uid"))
	s.reply(c, v, err)
}

func (s *Server) sendMessage(c *gin.Context) {
	var body sendMessageBody
	if err := bindJSON(c, &body); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	v, err := s.svc.SendMessage(c.Request.Context(), c.Param("uid"), body.Text)
	s.reply(c, v, err)
}

func (s *Server) search(c *gin.Context) {
	v, err := s.svc.Search(c.Request.Context(), c.Param("query"))
	s.reply(c, v, err)
}

func (s *Server) searchTweets(c *gin.Context) {
	count, err := queryCount(c, service.DefaultCount)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	v, err := s.svc.SearchTweets(c.Request.Context(), c.Query("query"), count)
	s.reply(c, v, err)
}
