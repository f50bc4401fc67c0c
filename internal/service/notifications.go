package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/examportal/internal/domain"
	"github.com/vbonduro/examportal/internal/notify"
)

// RecentNotificationLimit bounds the history shown on the notify page.
const RecentNotificationLimit = 20

// NotificationInput is the raw notify form. AttachCategory and AttachIndex
// optionally name a slot whose file is attached.
type NotificationInput struct {
	To             string `validate:"required,email"`
	Subject        string `validate:"required,max=200"`
	Body           string `validate:"required"`
	AttachCategory string
	AttachIndex    int `validate:"omitempty,min=1"`
}

// SendNotification sends one email. Failures are returned wrapping
// domain.ErrTransport and never touch the document or calendar stores.
func (s *PortalService) SendNotification(ctx context.Context, in NotificationInput) error {
	if s.notifier == nil {
		return domain.ErrFeatureDisabled
	}
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.validate.Struct(in); err != nil {
		return validationError(domain.ErrInvalidInput, err)
	}

	msg := notify.Message{To: in.To, Subject: in.Subject, Body: in.Body}
	if in.AttachCategory != "" {
		a, err := s.attachment(ctx, in.AttachCategory, in.AttachIndex)
		if err != nil {
			return err
		}
		msg.Attachment = a
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	sendErr := s.notifier.Send(sendCtx, msg)

	s.record(ctx, msg, sendErr)
	if sendErr != nil {
		return sendErr
	}
	s.logger.Info("notification sent", "recipient", msg.To, "subject", msg.Subject)
	return nil
}

func (s *PortalService) attachment(ctx context.Context, categoryKey string, index int) (*notify.Attachment, error) {
	entry, err := s.catalogue.Lookup(categoryKey, index)
	if err != nil {
		return nil, err
	}
	rc, f, err := s.documents.Open(ctx, entry.Slot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %q: %w", f.Filename, err)
	}
	return &notify.Attachment{Filename: f.Filename, ContentType: f.ContentType, Content: content}, nil
}

// record logs the attempt. A log failure never changes the send result.
func (s *PortalService) record(ctx context.Context, msg notify.Message, sendErr error) {
	if s.notifications == nil {
		return
	}
	rec := domain.NotificationRecord{
		ID:        uuid.New().String(),
		Recipient: msg.To,
		Subject:   msg.Subject,
		Status:    domain.NotificationSent,
		CreatedAt: s.clock(),
	}
	if msg.Attachment != nil {
		rec.Attachment = msg.Attachment.Filename
	}
	if sendErr != nil {
		rec.Status = domain.NotificationFailed
		rec.Error = sendErr.Error()
	}

	// The request context may already be past the send deadline.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifications.Record(logCtx, rec); err != nil {
		s.logger.Error("failed to record notification", "recipient", msg.To, "error", err)
	}
}

// RecentNotifications returns the latest attempts, newest first.
func (s *PortalService) RecentNotifications(ctx context.Context) ([]domain.NotificationRecord, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if s.notifications == nil {
		return nil, nil
	}
	return s.notifications.Recent(ctx, RecentNotificationLimit)
}
