package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*GoogleProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/oauth/google/callback",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		RevokeURL:    srv.URL + "/revoke",
	}, srv.Client())
	return p, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	raw := p.AuthCodeURL("signed-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/auth", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, SheetsReadOnlyScope, q.Get("scope"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestGoogleProvider_ExchangeSuccess(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		writeJSON(w, http.StatusOK, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	})

	tok, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 5*time.Second)
}

func TestGoogleProvider_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Bad Request"}`, common.ErrInvalidGrant},
		{"server error", http.StatusBadGateway, `{"error":"backend"}`, common.ErrUpstreamUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate_limit"}`, common.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := p.Exchange(context.Background(), "code")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGoogleProvider_ExchangeInvalidClientIsInternal(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_client"}`)
	})
	_, err := p.Exchange(context.Background(), "code")
	require.Error(t, err)
	assert.Equal(t, common.KindInternal, common.KindOf(err))
}

func TestGoogleProvider_ExchangeTimeout(t *testing.T) {
	release := make(chan struct{})
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Exchange(ctx, "code")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
}

func TestGoogleProvider_Revoke(t *testing.T) {
	var got string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/revoke", r.URL.Path)
		require.NoError(t, r.ParseForm())
		got = r.PostForm.Get("token")
		if got == "bad" {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_token"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, p.Revoke(context.Background(), "rt"))
	assert.Equal(t, "rt", got)

	err := p.Revoke(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_token")
}

func TestGoogleProvider_TokenSourceRefreshes(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		writeJSON(w, http.StatusOK, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	})

	ts := p.TokenSource(context.Background(), &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(-time.Minute),
	})
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken, "refresh token is kept when not rotated")
}

func TestClassifyRefreshError(t *testing.T) {
	rejected := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}, ErrorCode: "invalid_grant"}
	assert.ErrorIs(t, classifyRefreshError(rejected), common.ErrUpstreamUnauthorized)

	down := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	assert.ErrorIs(t, classifyRefreshError(down), common.ErrUpstreamUnavailable)

	transport := &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}
	assert.ErrorIs(t, classifyRefreshError(transport), common.ErrUpstreamUnavailable)

	noRefresh := errors.New("oauth2: token expired and refresh token is not set")
	assert.ErrorIs(t, classifyRefreshError(noRefresh), common.ErrUpstreamUnauthorized)
}
