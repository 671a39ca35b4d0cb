package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anatolykoptev/go-twitter-proxy/internal/service"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// requestID propagates X-Request-ID, generating one when absent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(ctxRequestID)),
		}
		level := slog.LevelInfo
		if err := c.Errors.Last(); err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelWarn
			if c.Writer.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
		}
		s.log.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}

// recovery turns a panicking handler into a 500 operation error.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.log.Error("handler panic",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered))
		s.fail(c, http.StatusInternalServerError, &service.OperationError{
			Prefix: "Internal error",
			Err:    errors.Errorf("%v", recovered),
		})
	})
}
