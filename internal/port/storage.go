package port

import (
	"context"

	"notepipe/internal/domain"
)

// FileStore abstracts the remote folder tree that acts as the pipeline's queue.
// Folders are addressed by slash-separated paths relative to the store root.
type FileStore interface {
	List(ctx context.Context, folder string) ([]domain.SourceFile, error)
	Download(ctx context.Context, id string) ([]byte, error)
	// Read returns the content of folder/name, or an error matching
	// domain.ErrNotFound when there is no such file.
	Read(ctx context.Context, folder, name string) ([]byte, error)
	Upload(ctx context.Context, folder, name, contentType string, data []byte) error
	Move(ctx context.Context, id, folder string) error
	Exists(ctx context.Context, folder, name string) (bool, error)
}
