package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vbonduro/examportal/internal/catalogue"
	"github.com/vbonduro/examportal/internal/domain"
)

// SlotView is a catalogue slot together with its stored file, if any.
type SlotView struct {
	catalogue.Entry
	File *domain.StoredFile
}

func (v SlotView) Exists() bool { return v.File != nil }

func (s *PortalService) Categories() []catalogue.Category {
	return s.catalogue.Categories()
}

// ListDocuments returns every slot of a category with its existence state.
func (s *PortalService) ListDocuments(ctx context.Context, categoryKey string) (catalogue.Category, []SlotView, error) {
	cat, ok := s.catalogue.Category(categoryKey)
	if !ok {
		return catalogue.Category{}, nil, fmt.Errorf("category %q: %w", categoryKey, domain.ErrUnknownSlot)
	}
	entries, err := s.catalogue.Entries(categoryKey)
	if err != nil {
		return catalogue.Category{}, nil, err
	}

	views := make([]SlotView, 0, len(entries))
	for _, e := range entries {
		f, err := s.documents.Find(ctx, e.Slot)
		if err != nil {
			return catalogue.Category{}, nil, fmt.Errorf("failed to look up %q: %w", e.Slot.Name, err)
		}
		views = append(views, SlotView{Entry: e, File: f})
	}
	return cat, views, nil
}

// UploadDocument creates or replaces the file of a slot. The extension is
// taken from filename.
func (s *PortalService) UploadDocument(ctx context.Context, categoryKey string, index int, filename string, r io.Reader) (*domain.StoredFile, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	entry, err := s.catalogue.Lookup(categoryKey, index)
	if err != nil {
		return nil, err
	}
	ext := domain.NormalizeExtension(filepath.Ext(filename))
	if !domain.AllowedExtension(ext) {
		return nil, fmt.Errorf("%q (allowed: %s): %w", filename,
			strings.Join(domain.AllowedExtensions, " "), domain.ErrUnsupportedType)
	}

	f, err := s.documents.Save(ctx, entry.Slot, ext, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document uploaded",
		"category", entry.Slot.Category, "slot", entry.Slot.Name, "file", f.Filename, "bytes", f.Size)
	return f, nil
}

func (s *PortalService) DeleteDocument(ctx context.Context, categoryKey string, index int) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	entry, err := s.catalogue.Lookup(categoryKey, index)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, entry.Slot); err != nil {
		return err
	}
	s.logger.Info("document deleted", "category", entry.Slot.Category, "slot", entry.Slot.Name)
	return nil
}

// OpenDocument is ungated. The caller closes the reader.
func (s *PortalService) OpenDocument(ctx context.Context, categoryKey string, index int) (io.ReadCloser, *domain.StoredFile, error) {
	entry, err := s.catalogue.Lookup(categoryKey, index)
	if err != nil {
		return nil, nil, err
	}
	return s.documents.Open(ctx, entry.Slot)
}
