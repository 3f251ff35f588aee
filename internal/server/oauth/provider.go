// Package oauth implements the server side of the authorization-code flow
// with the external spreadsheet provider: signed state, single-use code
// exchange, session persistence, refresh and revocation.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/netx"
	"golang.org/x/oauth2"
)

// SheetsReadOnlyScope is the only scope requested.
const SheetsReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

// Provider abstracts the external authorization server.
type Provider interface {
	// AuthCodeURL builds the consent URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Revoke invalidates token at the provider.
	Revoke(ctx context.Context, token string) error
	// TokenSource refreshes t when it expires.
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
	// Client returns an HTTP client that authorizes requests with ts.
	Client(ctx context.Context, ts oauth2.TokenSource) *http.Client
}

// GoogleConfig is the client registration for Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
}

// GoogleProvider talks to Google's OAuth 2.0 endpoints.
type GoogleProvider struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client
}

// NewGoogleProvider builds the provider. httpClient carries the transport
// used for token, refresh and revoke calls; nil uses netx.NewClient defaults.
func NewGoogleProvider(cfg GoogleConfig, httpClient *http.Client) *GoogleProvider {
	if httpClient == nil {
		httpClient = netx.NewClient(0)
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{SheetsReadOnlyScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		revokeURL:  cfg.RevokeURL,
		httpClient: httpClient,
	}
}

func (p *GoogleProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// AuthCodeURL requests offline access with forced consent so a refresh
// token is issued on every grant.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, classifyExchangeError(err)
	}
	return tok, nil
}

func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke status %d: %s", resp.StatusCode, netx.ReadLimited(resp.Body, 512))
	}
	return nil
}

func (p *GoogleProvider) TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource {
	return p.config.TokenSource(p.withClient(ctx), t)
}

func (p *GoogleProvider) Client(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(p.withClient(ctx), ts)
}

// classifyExchangeError maps token endpoint failures on the code exchange.
func classifyExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorCode == "invalid_grant":
			return fmt.Errorf("%w: %s", common.ErrInvalidGrant, re.ErrorDescription)
		case re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: token endpoint", common.ErrRateLimited)
		case re.Response != nil && re.Response.StatusCode >= 500:
			return fmt.Errorf("%w: token endpoint status %d", common.ErrUpstreamUnavailable, re.Response.StatusCode)
		default:
			return fmt.Errorf("token endpoint rejected exchange: %s", re.ErrorCode)
		}
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	return err
}

// classifyRefreshError maps failures of a background token refresh. Any
// rejection by the token endpoint means the stored grant is no longer usable.
func classifyRefreshError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: token endpoint status %d", common.ErrUpstreamUnavailable, re.Response.StatusCode)
		}
		return fmt.Errorf("%w: refresh rejected: %s", common.ErrUpstreamUnauthorized, re.ErrorCode)
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %v", common.ErrUpstreamUnauthorized, err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
