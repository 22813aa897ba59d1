package share

import (
	"context"
	"time"

	"classdrop/internal/models"
	"classdrop/internal/policy"
	"classdrop/internal/store"
)

// AuditService exposes the audit log to administrators. Reading the live
// log is itself recorded as a VIEW entry.
type AuditService struct {
	audit store.AuditStore
}

// NewAuditService constructs an AuditService.
func NewAuditService(audit store.AuditStore) *AuditService {
	return &AuditService{audit: audit}
}

// Entries returns the live audit log oldest-first and appends a VIEW
// entry recording the read. The returned slice does not include the
// VIEW entry it generates.
func (s *AuditService) Entries(ctx context.Context, session *models.Session, now time.Time) ([]models.AuditEntry, error) {
	if err := requireSession(session, policy.OpViewLog); err != nil {
		return nil, err
	}
	entries, err := s.audit.ReadAudit(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	view := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionView, Target: "audit_log"}
	if err := s.audit.AppendAudit(ctx, &view); err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// ArchivedEntries returns previously archived entries oldest-first.
func (s *AuditService) ArchivedEntries(ctx context.Context, session *models.Session, now time.Time) ([]models.AuditEntry, error) {
	if err := requireSession(session, policy.OpViewLog); err != nil {
		return nil, err
	}
	entries, err := s.audit.ReadAuditArchive(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	view := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionView, Target: "audit_archive"}
	if err := s.audit.AppendAudit(ctx, &view); err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// Archive moves the live log into the archive behind a terminal ARCHIVE
// marker and returns how many entries moved, marker included. The live
// log is empty afterwards; nothing is destroyed.
func (s *AuditService) Archive(ctx context.Context, session *models.Session, now time.Time) (int, error) {
	if err := requireSession(session, policy.OpViewLog); err != nil {
		return 0, err
	}
	marker := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionArchive, Target: "audit_log"}
	moved, err := s.audit.ArchiveAudit(ctx, &marker, now.UTC())
	if err != nil {
		return 0, storageErr(err)
	}
	return moved, nil
}
