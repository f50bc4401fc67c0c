package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vbonduro/examportal/internal/domain"
)

const tempPattern = ".upload-*"

type LocalDocumentStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalDocumentStore(basePath string) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalDocumentStore{basePath: basePath, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *LocalDocumentStore) Find(ctx context.Context, slot domain.Slot) (*domain.StoredFile, error) {
	matches, err := s.matches(slot)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return s.stat(slot, matches[0])
}

func (s *LocalDocumentStore) Save(ctx context.Context, slot domain.Slot, ext string, r io.Reader) (*domain.StoredFile, error) {
	ext = domain.NormalizeExtension(ext)
	if !domain.AllowedExtension(ext) {
		return nil, fmt.Errorf("extension %q: %w", ext, domain.ErrUnsupportedType)
	}

	unlock := s.lock(slot)
	defer unlock()

	filename := slot.FileStem() + ext
	target, err := s.safeJoin(filename)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.basePath, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		s.removeTemp(tmpPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.removeTemp(tmpPath)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		s.removeTemp(tmpPath)
		return nil, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		s.removeTemp(tmpPath)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	// A replacement may arrive with a different extension; the old file
	// would otherwise keep shadowing the slot.
	matches, err := s.matches(slot)
	if err != nil {
		return nil, err
	}
	for _, name := range matches {
		if name != filename && isExactMatch(slot.FileStem(), name) {
			if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !os.IsNotExist(err) {
				slog.Error("failed to remove replaced file", "file", name, "error", err)
			}
		}
	}

	return s.stat(slot, filename)
}

func (s *LocalDocumentStore) Open(ctx context.Context, slot domain.Slot) (io.ReadCloser, *domain.StoredFile, error) {
	file, err := s.Find(ctx, slot)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, domain.ErrNotFound
	}

	filePath, err := s.safeJoin(file.Filename)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	// The file may have been replaced since Find; describe what was opened.
	info, err := f.Stat()
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after stat error", "error", cerr)
		}
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return f, storedFile(slot, file.Filename, info), nil
}

func (s *LocalDocumentStore) Delete(ctx context.Context, slot domain.Slot) error {
	unlock := s.lock(slot)
	defer unlock()

	matches, err := s.matches(slot)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return domain.ErrNotFound
	}

	// Every exact-stem file belongs to the slot, plus whatever prefix
	// match Find would report.
	targets := []string{matches[0]}
	for _, name := range matches[1:] {
		if isExactMatch(slot.FileStem(), name) {
			targets = append(targets, name)
		}
	}

	removed := 0
	for _, name := range targets {
		filePath, err := s.safeJoin(name)
		if err != nil {
			return err
		}
		if err := os.Remove(filePath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to delete file: %w", err)
		}
		removed++
	}
	if removed == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// matches lists files whose name starts with the slot's stem. Exact
// matches (stem + extension) sort first, then filenames in byte order, so
// the first element is the slot's file regardless of directory order.
func (s *LocalDocumentStore) matches(slot domain.Slot) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	stem := slot.FileStem()
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), stem) {
			continue
		}
		names = append(names, e.Name())
	}

	sort.SliceStable(names, func(i, j int) bool {
		ei, ej := isExactMatch(stem, names[i]), isExactMatch(stem, names[j])
		if ei != ej {
			return ei
		}
		return names[i] < names[j]
	})
	return names, nil
}

func isExactMatch(stem, name string) bool {
	return strings.TrimSuffix(name, filepath.Ext(name)) == stem
}

func (s *LocalDocumentStore) stat(slot domain.Slot, name string) (*domain.StoredFile, error) {
	filePath, err := s.safeJoin(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return storedFile(slot, name, info), nil
}

func storedFile(slot domain.Slot, name string, info os.FileInfo) *domain.StoredFile {
	ext := strings.ToLower(filepath.Ext(name))
	return &domain.StoredFile{
		Slot:        slot,
		Filename:    name,
		Extension:   ext,
		ContentType: domain.ContentTypeFor(ext),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}
}

// lock serialises writers of the same file stem.
func (s *LocalDocumentStore) lock(slot domain.Slot) func() {
	stem := slot.FileStem()
	s.mu.Lock()
	l, ok := s.locks[stem]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stem] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *LocalDocumentStore) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to remove temp file", "file", path, "error", err)
	}
}

// safeJoin resolves name relative to basePath and rejects directory traversal.
func (s *LocalDocumentStore) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
