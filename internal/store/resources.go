package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"classdrop/internal/models"
)

const blobColumns = "id, sha256, size_bytes, storage_backend, blob_key, created_at"

const resourceSelect = `
	SELECT r.id, r.display_name, r.blob_id, r.uploaded_by, r.uploaded_at, r.description, b.size_bytes
	FROM resources r
	JOIN blobs b ON b.id = r.blob_id`

// ResourceExists checks whether a resource exists by id.
func (s *Store) ResourceExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM resources WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateResourceWithBlob upserts blob metadata and inserts the resource row
// and its tags in one transaction. The resource record and its bytes commit
// together or not at all.
func (s *Store) CreateResourceWithBlob(ctx context.Context, blob *models.Blob, resource *models.Resource) (err error) {
	if blob == nil {
		return fmt.Errorf("blob is required")
	}
	if resource == nil {
		return fmt.Errorf("resource is required")
	}

	blob.SHA256 = strings.ToLower(strings.TrimSpace(blob.SHA256))
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	if blob.SHA256 == "" {
		return fmt.Errorf("sha256 is required")
	}
	if blob.BlobKey == "" {
		return fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}
	if strings.TrimSpace(blob.StorageBackend) == "" {
		blob.StorageBackend = "local"
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}
	if resource.UploadedAt.IsZero() {
		resource.UploadedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if strings.TrimSpace(blob.ID) == "" {
		generated, genErr := GenerateBlobID(func(id string) (bool, error) {
			return blobIDExistsTx(ctx, tx, id)
		})
		if genErr != nil {
			err = genErr
			return err
		}
		blob.ID = generated
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (id, sha256, size_bytes, storage_backend, blob_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, blob.ID, blob.SHA256, blob.SizeBytes, blob.StorageBackend, blob.BlobKey, dbFormatTime(blob.CreatedAt)); err != nil {
		return err
	}

	canonical, err := scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE sha256 = ?`, blob.SHA256))
	if err != nil {
		return err
	}
	if canonical == nil {
		return fmt.Errorf("blob not found after upsert")
	}
	*blob = *canonical

	resource.BlobID = canonical.ID
	resource.SizeBytes = canonical.SizeBytes
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO resources (id, display_name, blob_id, uploaded_by, uploaded_at, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		resource.ID,
		resource.DisplayName,
		resource.BlobID,
		resource.UploadedBy,
		dbFormatTime(resource.UploadedAt),
		nullIfEmpty(strings.TrimSpace(resource.Description)),
	); err != nil {
		return err
	}

	resource.Tags = normalizeTags(resource.Tags)
	if err = insertResourceTagsTx(ctx, tx, resource.ID, resource.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// GetResource returns one resource with tags, or nil when absent.
func (s *Store) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	row := s.db.QueryRowContext(ctx, resourceSelect+` WHERE r.id = ?`, id)
	resource, err := scanResource(row)
	if err != nil || resource == nil {
		return resource, err
	}
	tags, err := s.listResourceTags(ctx, id)
	if err != nil {
		return nil, err
	}
	resource.Tags = tags
	return resource, nil
}

// ListResources returns all resources newest-upload-first, insertion order
// breaking ties.
func (s *Store) ListResources(ctx context.Context) ([]models.Resource, error) {
	rows, err := s.db.QueryContext(ctx, resourceSelect+` ORDER BY r.uploaded_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		if resource == nil {
			continue
		}
		resources = append(resources, *resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range resources {
		tags, err := s.listResourceTags(ctx, resources[i].ID)
		if err != nil {
			return nil, err
		}
		resources[i].Tags = tags
	}

	return resources, nil
}

// DeleteResource removes the resource row and reports whether the referenced
// blob became unreferenced. The returned blob, if any, is the caller's to
// remove (bytes first, then DeleteBlob); until then no resource points at it.
func (s *Store) DeleteResource(ctx context.Context, id string) (unreferenced *models.Blob, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var blobID string
	err = tx.QueryRowContext(ctx, "SELECT blob_id FROM resources WHERE id = ?", id).Scan(&blobID)
	if err == sql.ErrNoRows {
		err = nil
		_ = tx.Rollback()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id); err != nil {
		return nil, err
	}

	var refs int
	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources WHERE blob_id = ?", blobID).Scan(&refs); err != nil {
		return nil, err
	}

	var blob *models.Blob
	if refs == 0 {
		blob, err = scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, blobID))
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return blob, nil
}

// GetBlob returns one blob by id.
func (s *Store) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id)
	return scanBlob(row)
}

// ListUnreferencedBlobs returns blobs that no resource references.
func (s *Store) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	query := `
		SELECT b.id, b.sha256, b.size_bytes, b.storage_backend, b.blob_key, b.created_at
		FROM blobs b
		LEFT JOIN resources r ON r.blob_id = b.id
		WHERE r.id IS NULL
		ORDER BY b.created_at ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blobs := []models.Blob{}
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			blobs = append(blobs, *blob)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// DeleteBlob deletes one blob row by id.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE id = ?", id)
	return err
}

// ListBlobKeys returns every registered blob key.
func (s *Store) ListBlobKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT blob_key FROM blobs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (s *Store) listResourceTags(ctx context.Context, resourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag FROM resource_tags WHERE resource_id = ? ORDER BY tag ASC", resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func blobIDExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM blobs WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanResource(scanner interface {
	Scan(dest ...any) error
}) (*models.Resource, error) {
	resource := models.Resource{}

	var uploadedAt string
	var description sql.NullString

	err := scanner.Scan(
		&resource.ID,
		&resource.DisplayName,
		&resource.BlobID,
		&resource.UploadedBy,
		&uploadedAt,
		&description,
		&resource.SizeBytes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	resource.Description = description.String

	parsedUploaded, err := dbParseTime(uploadedAt)
	if err != nil {
		return nil, err
	}
	resource.UploadedAt = parsedUploaded

	return &resource, nil
}

func scanBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.Blob, error) {
	blob := models.Blob{}
	var createdAt string

	err := scanner.Scan(&blob.ID, &blob.SHA256, &blob.SizeBytes, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated

	return &blob, nil
}
