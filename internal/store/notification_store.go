package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/examportal/internal/domain"
)

// recordTimeLayout is fixed-width so that text order matches time order.
const recordTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Record(ctx context.Context, n domain.NotificationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, subject, attachment, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Recipient, n.Subject, n.Attachment, n.Status, n.Error, n.CreatedAt.UTC().Format(recordTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *NotificationStore) Recent(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, subject, attachment, status, error, created_at
		FROM notifications ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationRecord
	for rows.Next() {
		var (
			n       domain.NotificationRecord
			created string
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Subject, &n.Attachment, &n.Status, &n.Error, &created); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.CreatedAt, err = time.Parse(recordTimeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse notification time: %w", err)
		}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}
