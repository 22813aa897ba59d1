package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"classdrop/internal/models"
)

// CreateSession creates one session row bound to a user identity and token hash.
func (s *Store) CreateSession(ctx context.Context, session models.Session, tokenHash string, expiresAt, createdAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if strings.TrimSpace(session.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if !models.IsValidRole(session.Role) {
		return fmt.Errorf("invalid role %q", session.Role)
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, username, role, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)
	`, sessionID, session.Username, string(session.Role), tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetSessionByTokenHash returns the identity for an active, non-revoked
// session token hash, or nil when absent or expired.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT username, role, expires_at
		FROM sessions
		WHERE token_hash = ?
		  AND revoked_at IS NULL
		LIMIT 1
	`, tokenHash)

	var session models.Session
	var role, expiresRaw string
	if err := row.Scan(&session.Username, &role, &expiresRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	// RFC3339Nano drops trailing zeros, so stored strings do not sort by
	// time. Expiry is compared on parsed values, never in SQL.
	expiresAt, err := dbParseTime(expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("parse session expiry: %w", err)
	}
	if !expiresAt.After(now) {
		return nil, nil
	}
	session.Role = models.Role(role)
	return &session, nil
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = ?
		WHERE token_hash = ?
		  AND revoked_at IS NULL
	`, dbFormatTime(revokedAt), tokenHash)
	return err
}

func generateSessionID() (string, error) {
	id, err := randomHex(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ss-%s", id), nil
}
