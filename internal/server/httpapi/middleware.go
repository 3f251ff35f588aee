package httpapi

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/server/auth"
	"github.com/dmitrijs2005/dataimport/internal/server/imports"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	subjectIDKey    = "subjectID"
	requestIDHeader = "X-Request-ID"
)

// requireSubject accepts "Authorization: Bearer <jwt>" or the
// access_token header and stores the subject in the gin context.
func (s *Server) requireSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.GetHeader(common.AccessTokenHeaderName)
		}
		if token == "" {
			writeFailure(c, common.KindUnauthorized, "missing token")
			c.Abort()
			return
		}

		subjectID, err := auth.GetSubjectIDFromToken(token, s.jwtSecret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			writeFailure(c, common.KindUnauthorized, msg)
			c.Abort()
			return
		}

		c.Set(subjectIDKey, subjectID)
		c.Next()
	}
}

func bearerToken(h string) string {
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func subjectID(c *gin.Context) string {
	return c.GetString(subjectIDKey)
}

// requestLogger tags the request context with a request id (taken from
// X-Request-ID when the caller sends one) and logs one line per request.
// The route template is logged instead of the raw URL so codes and states
// never reach the logs.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"subject", subjectID(c),
		)
	}
}

// recoverer turns a handler panic into the JSON failure shape. A panic
// carrying an authorization URL still produces the auth-required response.
func (s *Server) recoverer() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok {
			if url, ok := common.AuthURLFromError(err); ok {
				writeAuthRequired(c, url)
				c.Abort()
				return
			}
		}
		s.logger.Error(c.Request.Context(), "handler panic", "panic", fmt.Sprint(recovered), "route", c.FullPath())
		writeFailure(c, common.KindInternal, imports.SafeMessage(common.KindInternal))
		c.Abort()
	})
}
