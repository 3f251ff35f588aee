package httpapi

import (
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) oauthAuthorize(c *gin.Context) {
	authURL := s.sessions.AuthorizationURL(c.Request.Context(), subjectID(c))
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusTemporaryRedirect, authURL)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

func (s *Server) oauthCallback(c *gin.Context) {
	ctx := c.Request.Context()

	// the user declined consent, or the provider failed before issuing a code
	if providerErr := c.Query("error"); providerErr != "" {
		s.logger.Info(ctx, "authorization declined at provider", "reason", providerErr)
		s.callbackFailure(c, common.KindInvalidGrant)
		return
	}

	if _, err := s.sessions.ExchangeCode(ctx, c.Query("code"), c.Query("state")); err != nil {
		kind := common.KindOf(err)
		s.logger.Warn(ctx, "authorization callback failed", "kind", string(kind), "error", err.Error())
		s.callbackFailure(c, kind)
		return
	}

	if s.opts.SuccessRedirectURL == "" {
		renderPage(c, http.StatusOK, "Authorization complete", "You can close this window and return to the application.")
		return
	}
	c.Redirect(http.StatusFound, s.opts.SuccessRedirectURL)
}

func (s *Server) callbackFailure(c *gin.Context, kind common.ErrorKind) {
	if s.opts.ErrorRedirectURL != "" {
		if u, err := url.Parse(s.opts.ErrorRedirectURL); err == nil {
			q := u.Query()
			q.Set("error", string(kind))
			u.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, u.String())
			return
		}
	}
	renderPage(c, statusFor(kind), "Authorization failed", callbackMessage(kind))
}

func callbackMessage(kind common.ErrorKind) string {
	switch kind {
	case common.KindInvalidGrant:
		return "The authorization code was rejected or already used. Please start again."
	case common.KindStateMismatch:
		return "This authorization link is invalid or has expired. Please start again."
	case common.KindUpstreamUnavailable:
		return "The provider did not respond in time. Please try again."
	default:
		return "Something went wrong while completing authorization."
	}
}

func renderPage(c *gin.Context, status int, title, message string) {
	page := fmt.Sprintf("<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head>"+
		"<body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}

// oauthLogout always reports success; failures are only logged.
func (s *Server) oauthLogout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.sessions.Logout(ctx, subjectID(c)); err != nil {
		s.logger.Error(ctx, "logout failed", "subject", subjectID(c), "error", err.Error())
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) oauthStatus(c *gin.Context) {
	st, err := s.sessions.State(c.Request.Context(), subjectID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorized": st == models.StateAuthenticated,
		"state":      st,
	})
}
