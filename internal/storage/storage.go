// Package storage holds the object-storage collaborator used for evidence
// uploads and generated PDFs.
package storage

import "context"

// Uploader persists a binary file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
