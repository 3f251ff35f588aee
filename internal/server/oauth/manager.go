package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/server/metrics"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/sessions"
	"golang.org/x/oauth2"
)

// codeClaimTTL bounds how long a used authorization code stays remembered.
// Providers expire codes well within this window.
const codeClaimTTL = 15 * time.Minute

// Manager owns every subject's external session.
type Manager struct {
	provider Provider
	sessions sessions.Repository
	grants   GrantStore
	signer   *StateSigner
	timeout  time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics

	locks *keyedMutex
	now   func() time.Time
}

func NewManager(provider Provider, repo sessions.Repository, grants GrantStore, signer *StateSigner,
	timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Manager{
		provider: provider,
		sessions: repo,
		grants:   grants,
		signer:   signer,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// AuthorizationURL returns a fresh consent URL bound to subjectID. It never
// fails; a pending marker is recorded best-effort.
func (m *Manager) AuthorizationURL(ctx context.Context, subjectID string) string {
	state, err := m.signer.Issue(subjectID)
	if err != nil {
		m.logger.Error(ctx, "failed to sign oauth state", "subject", subjectID, "error", err.Error())
	}

	if err := m.grants.SetPending(ctx, subjectID, m.signer.TTL()); err != nil {
		m.logger.Warn(ctx, "failed to mark authorization pending", "subject", subjectID, "error", err.Error())
	}

	m.metrics.ObserveOAuth("authorize", "ok")
	return m.provider.AuthCodeURL(state)
}

// ExchangeCode completes the handshake. A given code or state is effective
// at most once; replays and race losers fail without touching the provider.
func (m *Manager) ExchangeCode(ctx context.Context, code, state string) (*models.ExternalSession, error) {
	s, err := m.exchange(ctx, code, state)
	if err != nil {
		m.metrics.ObserveOAuth("exchange", string(common.KindOf(err)))
		return nil, err
	}
	m.metrics.ObserveOAuth("exchange", "ok")
	m.logger.Info(ctx, "external session established", "subject", s.SubjectID)
	return s, nil
}

func (m *Manager) exchange(ctx context.Context, code, state string) (*models.ExternalSession, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: missing state", common.ErrStateMismatch)
	}
	claims, err := m.signer.Parse(state)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", common.ErrInvalidGrant)
	}

	unlock := m.locks.Lock(claims.SubjectID)
	defer unlock()

	ok, err := m.grants.Claim(ctx, "code:"+hashCode(code), codeClaimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim code: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: authorization code already used", common.ErrInvalidGrant)
	}

	ok, err = m.grants.Claim(ctx, "state:"+claims.Nonce, claims.ExpiresAt.Sub(m.now())+time.Minute)
	if err != nil {
		return nil, fmt.Errorf("claim state: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: state already used", common.ErrStateMismatch)
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	tok, err := m.provider.Exchange(cctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	session := sessionFromToken(claims.SubjectID, tok, m.now())
	if err := m.sessions.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if err := m.grants.ClearPending(ctx, claims.SubjectID); err != nil {
		m.logger.Warn(ctx, "failed to clear pending marker", "subject", claims.SubjectID, "error", err.Error())
	}
	return session, nil
}

// IsAuthorized reports whether subjectID holds a non-expired session. It
// never refreshes.
func (m *Manager) IsAuthorized(ctx context.Context, subjectID string) (bool, error) {
	s, err := m.sessions.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return !s.Expired(m.now()), nil
}

// State reports where subjectID is in the authorization lifecycle.
func (m *Manager) State(ctx context.Context, subjectID string) (models.SessionState, error) {
	s, err := m.sessions.Get(ctx, subjectID)
	switch {
	case err == nil && !s.Expired(m.now()):
		return models.StateAuthenticated, nil
	case err == nil:
		return models.StateExpired, nil
	case !errors.Is(err, common.ErrorNotFound):
		return "", err
	}

	pending, err := m.grants.Pending(ctx, subjectID)
	if err != nil {
		m.logger.Warn(ctx, "failed to read pending marker", "subject", subjectID, "error", err.Error())
	}
	if pending {
		return models.StateAuthorizationPending, nil
	}
	return models.StateUnauthenticated, nil
}

// Logout forgets the subject's session and then revokes it at the provider.
// Revocation failures are logged, never returned. Repeated calls are no-ops.
func (m *Manager) Logout(ctx context.Context, subjectID string) error {
	unlock := m.locks.Lock(subjectID)
	defer unlock()

	s, err := m.sessions.Get(ctx, subjectID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		m.logger.Warn(ctx, "failed to load session before logout", "subject", subjectID, "error", err.Error())
	}

	if err := m.sessions.Delete(ctx, subjectID); err != nil {
		m.metrics.ObserveOAuth("logout", string(common.KindOf(err)))
		return fmt.Errorf("delete session: %w", err)
	}
	if err := m.grants.ClearPending(ctx, subjectID); err != nil {
		m.logger.Warn(ctx, "failed to clear pending marker", "subject", subjectID, "error", err.Error())
	}
	m.metrics.ObserveOAuth("logout", "ok")

	if s == nil {
		return nil
	}
	token := s.RefreshToken
	if token == "" {
		token = s.AccessToken
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.provider.Revoke(rctx, token); err != nil {
		m.logger.Warn(ctx, "token revocation failed", "subject", subjectID, "error", err.Error())
	}
	return nil
}

// HTTPClient returns a client authorized as subjectID. Refreshed tokens are
// written back to the session store. A missing session yields
// common.ErrUpstreamUnauthorized.
func (m *Manager) HTTPClient(ctx context.Context, subjectID string) (*http.Client, error) {
	s, err := m.sessions.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: no session", common.ErrUpstreamUnauthorized)
		}
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
	src := &persistingSource{
		ctx:       ctx,
		base:      m.provider.TokenSource(ctx, tok),
		subjectID: subjectID,
		last:      s.AccessToken,
		manager:   m,
	}
	return m.provider.Client(ctx, src), nil
}

// persistingSource stores every newly minted access token. A refresh that
// finishes after logout, or after a newer session replaced the one it
// started from, is not written back.
type persistingSource struct {
	ctx       context.Context
	base      oauth2.TokenSource
	subjectID string
	manager   *Manager

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	if err := p.persist(tok); err != nil {
		return nil, err
	}
	p.last = tok.AccessToken
	return tok, nil
}

// persist writes tok back under the subject lock. The stored session must
// still be the one this source was minted from.
func (p *persistingSource) persist(tok *oauth2.Token) error {
	m := p.manager
	unlock := m.locks.Lock(p.subjectID)
	defer unlock()

	cur, err := m.sessions.Get(p.ctx, p.subjectID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		m.metrics.ObserveOAuth("refresh", "revoked")
		return fmt.Errorf("%w: session ended during refresh", common.ErrUpstreamUnauthorized)
	case err != nil:
		m.logger.Error(p.ctx, "failed to load session for refresh", "subject", p.subjectID, "error", err.Error())
		return nil
	case cur.AccessToken != p.last:
		m.logger.Info(p.ctx, "session replaced during refresh, not persisting", "subject", p.subjectID)
		return nil
	}

	s := sessionFromToken(p.subjectID, tok, m.now())
	if s.RefreshToken == "" {
		s.RefreshToken = cur.RefreshToken
	}
	if err := m.sessions.Upsert(p.ctx, s); err != nil {
		m.logger.Error(p.ctx, "failed to persist refreshed token", "subject", p.subjectID, "error", err.Error())
		return nil
	}
	m.metrics.ObserveOAuth("refresh", "ok")
	return nil
}

func sessionFromToken(subjectID string, tok *oauth2.Token, now time.Time) *models.ExternalSession {
	return &models.ExternalSession{
		SubjectID:    subjectID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Expiry:       tok.Expiry,
		UpdatedAt:    now,
	}
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
