package share

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	internalauth "classdrop/internal/auth"
	"classdrop/internal/credstore"
	"classdrop/internal/models"
	"classdrop/internal/store"
)

var defaultSessionTTL = 24 * time.Hour

// AuthService validates credentials against the roster, issues session
// tokens, and records LOGIN/LOGOUT audit entries.
type AuthService struct {
	creds      credstore.Store
	sessions   store.SessionStore
	audit      store.AuditStore
	sessionTTL time.Duration
}

// LoginResult carries the issued token alongside the session identity.
type LoginResult struct {
	Session   models.Session
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(creds credstore.Store, sessions store.SessionStore, audit store.AuditStore) *AuthService {
	if creds == nil || sessions == nil || audit == nil {
		return nil
	}
	return &AuthService{creds: creds, sessions: sessions, audit: audit, sessionTTL: defaultSessionTTL}
}

// SetSessionTTL overrides the session lifetime.
func (a *AuthService) SetSessionTTL(ttl time.Duration) {
	if a == nil || ttl <= 0 {
		return
	}
	a.sessionTTL = ttl
}

// Authenticate checks username and password against the credential store.
// On success it creates a session and appends exactly one LOGIN entry; a
// failed attempt appends nothing and returns ErrInvalidCredentials.
func (a *AuthService) Authenticate(ctx context.Context, username, password string, now time.Time) (*LoginResult, error) {
	if a == nil {
		return nil, storageErr(fmt.Errorf("auth service is not configured"))
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, invalidCredentials(nil)
	}
	if strings.TrimSpace(password) == "" {
		return nil, invalidCredentials(nil)
	}

	user, ok := a.creds.Lookup(normalized)
	if !ok || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, invalidCredentials(nil)
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, storageErr(err)
	}
	session := models.Session{Username: user.Username, Role: user.Role}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.sessions.CreateSession(ctx, session, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, storageErr(err)
	}

	entry := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionLogin}
	if err := a.audit.AppendAudit(ctx, &entry); err != nil {
		// A login that cannot be recorded is not a login.
		_ = a.sessions.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
		return nil, storageErr(err)
	}

	return &LoginResult{Session: session, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve returns the session identity for an active token.
func (a *AuthService) Resolve(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	if a == nil {
		return nil, storageErr(fmt.Errorf("auth service is not configured"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidCredentials(fmt.Errorf("session token is required"))
	}
	session, err := a.sessions.GetSessionByTokenHash(ctx, hashSessionToken(token), now)
	if err != nil {
		return nil, storageErr(err)
	}
	if session == nil {
		return nil, invalidCredentials(fmt.Errorf("session expired or unknown"))
	}
	return session, nil
}

// Logout revokes the token's session and appends a LOGOUT entry.
func (a *AuthService) Logout(ctx context.Context, token string, now time.Time) error {
	if a == nil {
		return storageErr(fmt.Errorf("auth service is not configured"))
	}
	session, err := a.Resolve(ctx, token, now)
	if err != nil {
		return err
	}
	if err := a.sessions.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now); err != nil {
		return storageErr(err)
	}
	entry := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionLogout}
	if err := a.audit.AppendAudit(ctx, &entry); err != nil {
		return storageErr(err)
	}
	return nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
