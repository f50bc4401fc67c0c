package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vbonduro/examportal/internal/domain"
)

const calendarFileMode = 0644

// CalendarFileStore persists the academic calendar as a single JSON array
// that is rewritten in full on every append.
type CalendarFileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	events []domain.CalendarEvent
	loaded bool
}

func NewCalendarFileStore(path string, logger *slog.Logger) (*CalendarFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create calendar directory: %w", err)
	}
	return &CalendarFileStore{path: path, logger: logger}, nil
}

// Load returns the stored events in insertion order. A missing or
// unreadable file yields an empty calendar.
func (s *CalendarFileStore) Load(ctx context.Context) ([]domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()
	return slices.Clone(s.events), nil
}

// Append adds ev and rewrites the file. On a write failure the in-memory
// calendar is left unchanged.
func (s *CalendarFileStore) Append(ctx context.Context, ev domain.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()
	next := append(slices.Clone(s.events), ev)
	if err := s.write(next); err != nil {
		return err
	}
	s.events = next
	return nil
}

// Replace overwrites the whole calendar with events.
func (s *CalendarFileStore) Replace(ctx context.Context, events []domain.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(events)
	if err := s.write(next); err != nil {
		return err
	}
	s.events = next
	s.loaded = true
	return nil
}

func (s *CalendarFileStore) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.events = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("calendar file unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var events []domain.CalendarEvent
	if err := json.Unmarshal(data, &events); err != nil {
		s.logger.Warn("calendar file invalid, starting empty", "path", s.path, "error", err)
		return
	}
	s.events = events
}

// write replaces the file atomically: temp file in the same directory,
// then rename.
func (s *CalendarFileStore) write(events []domain.CalendarEvent) error {
	if events == nil {
		events = []domain.CalendarEvent{}
	}
	data, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		if rerr := os.Remove(tmpPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			s.logger.Error("failed to remove temp calendar file", "path", tmpPath, "error", rerr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := os.Chmod(tmpPath, calendarFileMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}
