// Package httpserver exposes the proxy actions over HTTP.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go-twitter-proxy/internal/service"
)

// Server is the gin-based HTTP surface.
type Server struct {
	svc    *service.Service
	log    *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

// New builds the router for svc. Requests are logged to log.
func New(svc *service.Service, log *slog.Logger, addr string) *Server {
	s := &Server{svc: svc, log: log, engine: gin.New()}
	s.engine.Use(requestID(), s.accessLog(), s.recovery())
	s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.GET("/search", s.searchTweets)
	r.GET("/search/:query", s.search)

	r.POST("/tweet", s.createTweet)
	r.POST("/quote", s.quoteTweet)

	r.GET("/home_feed", s.homeFeed)
	r.GET("/bookmarks_feed", s.bookmarksFeed)
	r.GET("/notifications_list", s.notifications)
	r.GET("/current_user", s.currentUser)

	r.GET("/tweet/:id", s.tweet)
	r.GET("/tweet/:id/replies", s.replies)
	r.GET("/tweet/:id/context", s.tweetContext)

	r.POST("/like/:id", s.ack("id", s.svc.Like))
	r.POST("/unlike/:id", s.ack("id", s.svc.Unlike))
	r.POST("/bookmark/:id", s.ack("id", s.svc.Bookmark))
	r.POST("/unbookmark/:id", s.ack("id", s.svc.Unbookmark))
	r.POST("/retweet/:id", s.ack("id", s.svc.Retweet))

	r.POST("/follow/:uid", s.ack("uid", s.svc.Follow))
	r.POST("/unfollow/:uid", s.ack("uid", s.svc.Unfollow))
	r.POST("/block/:uid", s.ack("uid", s.svc.Block))
	r.POST("/unblock/:uid", s.ack("uid", s.svc.Unblock))

	r.GET("/user_profile/:username", s.userProfile)
	r.GET("/get_user_id/:username", s.userID)
	r.GET("/direct_messages/:uid", s.directMessages)
	r.POST("/send_message/:uid", s.sendMessage)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening on http", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
