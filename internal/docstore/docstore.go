package docstore

import (
	"context"
	"io"

	"github.com/vbonduro/examportal/internal/domain"
)

// DocumentStore binds catalogue slots to at most one physical file each.
type DocumentStore interface {
	// Find returns the file bound to slot, or nil when the slot is empty.
	Find(ctx context.Context, slot domain.Slot) (*domain.StoredFile, error)
	// Save creates or replaces the slot's file. ext must be in the upload
	// allow-list, otherwise domain.ErrUnsupportedType is returned and
	// nothing is written.
	Save(ctx context.Context, slot domain.Slot, ext string, r io.Reader) (*domain.StoredFile, error)
	// Open returns the slot's content, or domain.ErrNotFound.
	Open(ctx context.Context, slot domain.Slot) (io.ReadCloser, *domain.StoredFile, error)
	// Delete removes the slot's file, or returns domain.ErrNotFound.
	Delete(ctx context.Context, slot domain.Slot) error
}
