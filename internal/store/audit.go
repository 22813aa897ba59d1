package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"classdrop/internal/models"
)

const auditColumns = "seq, ts, username, role, action, target"

// AppendAudit durably appends one entry and assigns its sequence number.
// A write failure is returned to the caller; audit appends are never
// best-effort.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	if strings.TrimSpace(entry.Username) == "" {
		return fmt.Errorf("audit entry requires username")
	}
	if !models.IsValidRole(entry.Role) {
		return fmt.Errorf("audit entry has invalid role %q", entry.Role)
	}
	if !models.IsValidAction(entry.Action) {
		return fmt.Errorf("audit entry has invalid action %q", entry.Action)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, username, role, action, target)
		VALUES (?, ?, ?, ?, ?)
	`, dbFormatTime(entry.Timestamp), entry.Username, string(entry.Role), string(entry.Action), nullIfEmpty(strings.TrimSpace(entry.Target)))
	if err != nil {
		return err
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.Seq = seq
	return nil
}

// ReadAudit returns all live audit entries oldest-first.
func (s *Store) ReadAudit(ctx context.Context) ([]models.AuditEntry, error) {
	return s.readAuditTable(ctx, "audit_log")
}

// ReadAuditArchive returns all archived entries oldest-first.
func (s *Store) ReadAuditArchive(ctx context.Context) ([]models.AuditEntry, error) {
	return s.readAuditTable(ctx, "audit_archive")
}

// ArchiveAudit appends the marker entry and moves every live entry, marker
// included, into audit_archive in one transaction. It returns the number of
// entries moved. The live log is empty afterwards and the marker records who
// rotated it and when.
func (s *Store) ArchiveAudit(ctx context.Context, marker *models.AuditEntry, archivedAt time.Time) (moved int, err error) {
	if marker == nil {
		return 0, fmt.Errorf("marker entry is required")
	}
	if marker.Action != models.ActionArchive {
		return 0, fmt.Errorf("marker entry must use the %s action", models.ActionArchive)
	}
	if marker.Timestamp.IsZero() {
		marker.Timestamp = archivedAt.UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (ts, username, role, action, target)
		VALUES (?, ?, ?, ?, ?)
	`, dbFormatTime(marker.Timestamp), marker.Username, string(marker.Role), string(marker.Action), nullIfEmpty(strings.TrimSpace(marker.Target)))
	if err != nil {
		return 0, err
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	marker.Seq = seq

	moveResult, err := tx.ExecContext(ctx, `
		INSERT INTO audit_archive (seq, ts, username, role, action, target, archived_at)
		SELECT seq, ts, username, role, action, target, ? FROM audit_log
	`, dbFormatTime(archivedAt))
	if err != nil {
		return 0, err
	}
	movedRows, err := moveResult.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM audit_log"); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int(movedRows), nil
}

func (s *Store) readAuditTable(ctx context.Context, table string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM `+table+` ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanAuditEntry(scanner interface {
	Scan(dest ...any) error
}) (*models.AuditEntry, error) {
	entry := models.AuditEntry{}
	var ts string
	var role, action string
	var target sql.NullString

	if err := scanner.Scan(&entry.Seq, &ts, &entry.Username, &role, &action, &target); err != nil {
		return nil, err
	}
	entry.Role = models.Role(role)
	entry.Action = models.Action(action)
	entry.Target = target.String

	parsed, err := dbParseTime(ts)
	if err != nil {
		return nil, err
	}
	entry.Timestamp = parsed

	return &entry, nil
}
