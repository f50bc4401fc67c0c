package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/examportal/internal/domain"
)

// CalendarSQLStore keeps calendar events in sqlite, one row per event.
type CalendarSQLStore struct {
	db *sql.DB
}

func NewCalendarSQLStore(db *sql.DB) *CalendarSQLStore {
	return &CalendarSQLStore{db: db}
}

func (s *CalendarSQLStore) Load(ctx context.Context) ([]domain.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT activity, start_date, end_date FROM calendar_events ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	defer rows.Close()

	var events []domain.CalendarEvent
	for rows.Next() {
		var (
			ev    domain.CalendarEvent
			start string
			end   sql.NullString
		)
		if err := rows.Scan(&ev.Activity, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		if ev.StartDate, err = domain.ParseDate(start); err != nil {
			return nil, fmt.Errorf("failed to parse start date: %w", err)
		}
		if end.Valid {
			d, err := domain.ParseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end date: %w", err)
			}
			ev.EndDate = &d
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar events: %w", err)
	}

	return events, nil
}

func (s *CalendarSQLStore) Append(ctx context.Context, ev domain.CalendarEvent) error {
	var end sql.NullString
	if ev.EndDate != nil {
		end = sql.NullString{String: ev.EndDate.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (activity, start_date, end_date) VALUES (?, ?, ?)
	`, ev.Activity, ev.StartDate.String(), end)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// ImportIfEmpty copies events into an empty table, preserving order. It
// returns the number of rows written.
func (s *CalendarSQLStore) ImportIfEmpty(ctx context.Context, events []domain.CalendarEvent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendar_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count calendar events: %w", err)
	}
	if count > 0 || len(events) == 0 {
		return 0, nil
	}

	for _, ev := range events {
		var end sql.NullString
		if ev.EndDate != nil {
			end = sql.NullString{String: ev.EndDate.String(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_events (activity, start_date, end_date) VALUES (?, ?, ?)
		`, ev.Activity, ev.StartDate.String(), end); err != nil {
			return 0, fmt.Errorf("failed to import calendar event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(events), nil
}
