package models

import "time"

// Resource is one shared file: display metadata plus a reference to the
// stored blob. The blob reference always resolves while the record exists.
type Resource struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	BlobID      string    `json:"blob_id"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Blob is an immutable stored content object referenced by resources.
type Blob struct {
	ID             string    `json:"id"`
	SHA256         string    `json:"sha256"`
	SizeBytes      int64     `json:"size_bytes"`
	StorageBackend string    `json:"storage_backend"`
	BlobKey        string    `json:"blob_key"`
	CreatedAt      time.Time `json:"created_at"`
}
