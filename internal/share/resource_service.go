package share

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"classdrop/internal/blobstore"
	"classdrop/internal/models"
	"classdrop/internal/policy"
	"classdrop/internal/store"
)

const defaultMaxUploadBytes = 256 << 20

// ResourceService implements the shared-file operations. Every method
// takes an explicit session; there is no ambient current user.
type ResourceService struct {
	resources store.ResourceStore
	audit     store.AuditStore
	blobs     blobstore.BlobStore

	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	gcBatchSize       int
}

// UploadRequest describes one file to share.
type UploadRequest struct {
	Filename    string
	Description string
	Tags        []string
	Content     io.Reader
}

// ResourceContent is an open download stream with its metadata.
type ResourceContent struct {
	Resource models.Resource
	Reader   io.ReadCloser
}

// GCResult summarizes one maintenance sweep.
type GCResult struct {
	BlobRowsDeleted  int
	BlobFilesDeleted int
	OrphanedFiles    int
}

// NewResourceService constructs a ResourceService.
func NewResourceService(resources store.ResourceStore, audit store.AuditStore, blobs blobstore.BlobStore) *ResourceService {
	return &ResourceService{
		resources:      resources,
		audit:          audit,
		blobs:          blobs,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// SetMaxUploadBytes caps the accepted upload size. Zero disables the cap.
func (s *ResourceService) SetMaxUploadBytes(limit int64) {
	if limit < 0 {
		limit = 0
	}
	s.maxUploadBytes = limit
}

// SetGCBatchSize bounds how many unreferenced blob rows one GC pass
// reclaims. Zero sweeps everything.
func (s *ResourceService) SetGCBatchSize(n int) {
	if n < 0 {
		n = 0
	}
	s.gcBatchSize = n
}

// SetAllowedExtensions restricts uploads to the given filename extensions
// (with or without the leading dot). An empty list accepts everything.
func (s *ResourceService) SetAllowedExtensions(exts []string) {
	if len(exts) == 0 {
		s.allowedExtensions = nil
		return
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	s.allowedExtensions = set
}

// Upload stores the file bytes and metadata and appends an UPLOAD entry.
// Duplicate display names are permitted; each upload gets its own id, and
// identical content shares one stored blob.
func (s *ResourceService) Upload(ctx context.Context, session *models.Session, req UploadRequest, now time.Time) (*models.Resource, error) {
	if err := requireSession(session, policy.OpUpload); err != nil {
		return nil, err
	}
	name, err := s.validateFilename(req.Filename)
	if err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, invalidArgument(fmt.Errorf("upload content is required"))
	}

	content := req.Content
	if s.maxUploadBytes > 0 {
		content = io.LimitReader(content, s.maxUploadBytes+1)
	}
	put, err := s.blobs.Put(ctx, content)
	if err != nil {
		return nil, storageErr(err)
	}
	if s.maxUploadBytes > 0 && put.SizeBytes > s.maxUploadBytes {
		// Over-limit bytes are already in content storage; the row never
		// lands, so the sweep reclaims them if nothing else shares them.
		return nil, invalidArgument(fmt.Errorf("upload exceeds %d byte limit", s.maxUploadBytes))
	}

	id, err := store.GenerateResourceID(func(candidate string) (bool, error) {
		return s.resources.ResourceExists(ctx, candidate)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	blob := models.Blob{
		SHA256:         put.SHA256,
		SizeBytes:      put.SizeBytes,
		StorageBackend: "local",
		BlobKey:        put.BlobKey,
		CreatedAt:      now.UTC(),
	}
	resource := models.Resource{
		ID:          id,
		DisplayName: name,
		UploadedBy:  session.Username,
		UploadedAt:  now.UTC(),
		Description: strings.TrimSpace(req.Description),
		Tags:        req.Tags,
	}
	if err := s.resources.CreateResourceWithBlob(ctx, &blob, &resource); err != nil {
		return nil, storageErr(err)
	}

	entry := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionUpload, Target: resource.DisplayName}
	if err := s.audit.AppendAudit(ctx, &entry); err != nil {
		// An upload that cannot be recorded is rolled back.
		slog.Warn("rolling back upload after audit append failure", "resource", resource.ID, "error", err)
		if released, derr := s.resources.DeleteResource(ctx, resource.ID); derr == nil && released != nil {
			if s.blobs.Delete(ctx, released.BlobKey) == nil {
				_ = s.resources.DeleteBlob(ctx, released.ID)
			}
		}
		return nil, storageErr(err)
	}

	return &resource, nil
}

// Delete removes the resource and, when no other resource shares its
// content, the stored bytes. It appends a DELETE entry.
func (s *ResourceService) Delete(ctx context.Context, session *models.Session, id string, now time.Time) error {
	if err := requireSession(session, policy.OpDelete); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidArgument(fmt.Errorf("resource id is required"))
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if resource == nil {
		return notFoundErr(fmt.Errorf("resource %s", id))
	}

	released, err := s.resources.DeleteResource(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if released != nil {
		// Metadata first, bytes second. A failed byte removal leaves the
		// blob row behind for the next maintenance sweep.
		if berr := s.blobs.Delete(ctx, released.BlobKey); berr != nil {
			slog.Warn("blob bytes not removed, leaving row for sweep", "blob", released.ID, "error", berr)
		} else if derr := s.resources.DeleteBlob(ctx, released.ID); derr != nil {
			return storageErr(derr)
		}
	}

	// The log keeps the human-readable name; the row it pointed at is gone.
	entry := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionDelete, Target: resource.DisplayName}
	if err := s.audit.AppendAudit(ctx, &entry); err != nil {
		return storageErr(err)
	}
	return nil
}

// List returns all shared resources, newest first.
func (s *ResourceService) List(ctx context.Context, session *models.Session) ([]models.Resource, error) {
	if err := requireSession(session, policy.OpList); err != nil {
		return nil, err
	}
	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return resources, nil
}

// Get returns one resource's metadata without opening its content.
func (s *ResourceService) Get(ctx context.Context, session *models.Session, id string) (*models.Resource, error) {
	if err := requireSession(session, policy.OpList); err != nil {
		return nil, err
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if resource == nil {
		return nil, notFoundErr(fmt.Errorf("resource %s", id))
	}
	return resource, nil
}

// Open returns a read stream for the resource content and appends a
// DOWNLOAD entry. The caller closes the reader.
func (s *ResourceService) Open(ctx context.Context, session *models.Session, id string, now time.Time) (*ResourceContent, error) {
	if err := requireSession(session, policy.OpDownload); err != nil {
		return nil, err
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if resource == nil {
		return nil, notFoundErr(fmt.Errorf("resource %s", id))
	}
	blob, err := s.resources.GetBlob(ctx, resource.BlobID)
	if err != nil {
		return nil, storageErr(err)
	}
	if blob == nil {
		return nil, storageErr(fmt.Errorf("blob %s missing for resource %s", resource.BlobID, resource.ID))
	}
	rc, err := s.blobs.Open(ctx, blob.BlobKey)
	if err != nil {
		return nil, storageErr(err)
	}

	entry := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionDownload, Target: resource.DisplayName}
	if err := s.audit.AppendAudit(ctx, &entry); err != nil {
		rc.Close()
		return nil, storageErr(err)
	}
	return &ResourceContent{Resource: *resource, Reader: rc}, nil
}

// GC reclaims blob rows with no referencing resource and content files
// with no blob row. Admin only.
func (s *ResourceService) GC(ctx context.Context, session *models.Session, now time.Time) (*GCResult, error) {
	if err := requireSession(session, policy.OpMaintain); err != nil {
		return nil, err
	}

	result := &GCResult{}
	stranded, err := s.resources.ListUnreferencedBlobs(ctx, s.gcBatchSize)
	if err != nil {
		return nil, storageErr(err)
	}
	for _, blob := range stranded {
		if err := s.blobs.Delete(ctx, blob.BlobKey); err != nil {
			continue
		}
		result.BlobFilesDeleted++
		if err := s.resources.DeleteBlob(ctx, blob.ID); err != nil {
			return result, storageErr(err)
		}
		result.BlobRowsDeleted++
	}

	known, err := s.resources.ListBlobKeys(ctx)
	if err != nil {
		return result, storageErr(err)
	}
	keys, err := s.blobs.List(ctx)
	if err != nil {
		return result, storageErr(err)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			continue
		}
		result.OrphanedFiles++
	}
	slog.Info("storage sweep finished",
		"blob_rows", result.BlobRowsDeleted,
		"blob_files", result.BlobFilesDeleted,
		"orphaned_files", result.OrphanedFiles)
	return result, nil
}

func (s *ResourceService) validateFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidArgument(fmt.Errorf("filename is required"))
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", invalidArgument(fmt.Errorf("filename must not contain path separators"))
	}
	if strings.ContainsRune(name, 0) {
		return "", invalidArgument(fmt.Errorf("filename contains invalid characters"))
	}
	if len(s.allowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := s.allowedExtensions[ext]; !ok {
			return "", invalidArgument(fmt.Errorf("file type %q is not accepted", ext))
		}
	}
	return name, nil
}
