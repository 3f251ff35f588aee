package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/cryptox"
	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// PostgresRepository persists sessions over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx). Access and refresh tokens are sealed before they are written.
type PostgresRepository struct {
	db     dbx.DBTX
	sealer *cryptox.Sealer
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, sealer *cryptox.Sealer) *PostgresRepository {
	return &PostgresRepository{db: db, sealer: sealer}
}

// Upsert seals both tokens and writes the row keyed by subject_id.
func (r *PostgresRepository) Upsert(ctx context.Context, s *models.ExternalSession) error {
	access, accessNonce, err := r.sealer.Seal([]byte(s.AccessToken))
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}

	var refresh, refreshNonce []byte
	if s.RefreshToken != "" {
		refresh, refreshNonce, err = r.sealer.Seal([]byte(s.RefreshToken))
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
	}

	var expires sql.NullTime
	if !s.Expiry.IsZero() {
		expires = sql.NullTime{Time: s.Expiry, Valid: true}
	}

	query := `
		INSERT INTO external_sessions (subject_id, access_token, access_token_nonce, refresh_token, refresh_token_nonce, token_type, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subject_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			access_token_nonce = EXCLUDED.access_token_nonce,
			refresh_token = COALESCE(EXCLUDED.refresh_token, external_sessions.refresh_token),
			refresh_token_nonce = COALESCE(EXCLUDED.refresh_token_nonce, external_sessions.refresh_token_nonce),
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		s.SubjectID, access, accessNonce, refresh, refreshNonce, s.TokenType, expires, time.Now()); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// Get loads and unseals the subject's session.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, subjectID string) (*models.ExternalSession, error) {
	query := `
		SELECT access_token, access_token_nonce, refresh_token, refresh_token_nonce, token_type, expires_at, updated_at
		FROM external_sessions
		WHERE subject_id = $1
	`
	var (
		access, accessNonce, refresh, refreshNonce []byte
		expires                                    sql.NullTime
	)
	s := &models.ExternalSession{SubjectID: subjectID}
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&access, &accessNonce, &refresh, &refreshNonce, &s.TokenType, &expires, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	plain, err := r.sealer.Open(access, accessNonce)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	s.AccessToken = string(plain)
	common.WipeByteArray(plain)

	if len(refresh) > 0 {
		plain, err = r.sealer.Open(refresh, refreshNonce)
		if err != nil {
			return nil, fmt.Errorf("open refresh token: %w", err)
		}
		s.RefreshToken = string(plain)
		common.WipeByteArray(plain)
	}

	if expires.Valid {
		s.Expiry = expires.Time
	}
	return s, nil
}

// Delete removes the session row for subjectID.
func (r *PostgresRepository) Delete(ctx context.Context, subjectID string) error {
	query := `
		DELETE FROM external_sessions
		WHERE subject_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, subjectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
