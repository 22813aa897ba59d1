package store

import (
	"context"
	"time"

	"classdrop/internal/models"
)

// ResourceStore abstracts resource metadata and blob registry storage.
type ResourceStore interface {
	ResourceExists(ctx context.Context, id string) (bool, error)
	CreateResourceWithBlob(ctx context.Context, blob *models.Blob, resource *models.Resource) error
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context) ([]models.Resource, error)
	DeleteResource(ctx context.Context, id string) (*models.Blob, error)
	GetBlob(ctx context.Context, id string) (*models.Blob, error)
	ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error)
	DeleteBlob(ctx context.Context, id string) error
	ListBlobKeys(ctx context.Context) (map[string]struct{}, error)
}

// AuditStore abstracts the append-only audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	ReadAudit(ctx context.Context) ([]models.AuditEntry, error)
	ReadAuditArchive(ctx context.Context) ([]models.AuditEntry, error)
	ArchiveAudit(ctx context.Context, marker *models.AuditEntry, archivedAt time.Time) (int, error)
}

// SessionStore abstracts session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session, tokenHash string, expiresAt, createdAt time.Time) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

var _ ResourceStore = (*Store)(nil)
var _ AuditStore = (*Store)(nil)
var _ SessionStore = (*Store)(nil)
