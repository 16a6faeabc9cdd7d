package server

import (
	"crypto/subtle"
	"strings"
	"time"

	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"github.com/homewardlabs/homeward/internal/auditcontext"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"

	contextAPIKeyIDKey = "api_key_id"
)

// RequestID tags every request with a UUID, honoring one the client sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger emits one structured line per request after it finishes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// APIKeyRequired authenticates requests against the configured static
// bearer key. An empty configured key leaves the API open, which is only
// sensible for local development.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := s.cfg.HTTP.APIKey
		if configured == "" {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(configured)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		keyID := "static"
		c.Set(contextAPIKeyIDKey, keyID)
		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeAPIKey), keyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
