// Package service implements the portal's operations behind the admin
// access gate.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/catalogue"
	"github.com/vbonduro/examportal/internal/docstore"
	"github.com/vbonduro/examportal/internal/domain"
	"github.com/vbonduro/examportal/internal/notify"
)

// calendarRepository is the subset of the calendar stores PortalService
// requires.
type calendarRepository interface {
	Load(ctx context.Context) ([]domain.CalendarEvent, error)
	Append(ctx context.Context, ev domain.CalendarEvent) error
}

// notificationLog is the subset of store.NotificationStore PortalService
// requires.
type notificationLog interface {
	Record(ctx context.Context, n domain.NotificationRecord) error
	Recent(ctx context.Context, limit int) ([]domain.NotificationRecord, error)
}

// Deps wires PortalService. Calendar, Notifier and NotificationLog are
// optional; the features they back report domain.ErrFeatureDisabled when
// they are nil.
type Deps struct {
	Catalogue       *catalogue.Catalogue
	Documents       docstore.DocumentStore
	Verifier        auth.Verifier
	Calendar        calendarRepository
	Notifier        notify.Notifier
	NotificationLog notificationLog
	Clock           func() time.Time
	Logger          *slog.Logger
	NotifyTimeout   time.Duration
}

type PortalService struct {
	catalogue     *catalogue.Catalogue
	documents     docstore.DocumentStore
	verifier      auth.Verifier
	calendar      calendarRepository
	notifier      notify.Notifier
	notifications notificationLog
	clock         func() time.Time
	logger        *slog.Logger
	notifyTimeout time.Duration
	validate      *validator.Validate
}

func New(d Deps) *PortalService {
	s := &PortalService{
		catalogue:     d.Catalogue,
		documents:     d.Documents,
		verifier:      d.Verifier,
		calendar:      d.Calendar,
		notifier:      d.Notifier,
		notifications: d.NotificationLog,
		clock:         d.Clock,
		logger:        d.Logger,
		notifyTimeout: d.NotifyTimeout,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.catalogue == nil {
		s.catalogue = catalogue.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 30 * time.Second
	}
	return s
}

func (s *PortalService) CalendarEnabled() bool { return s.calendar != nil }
func (s *PortalService) NotifyEnabled() bool   { return s.notifier != nil }

func (s *PortalService) today() domain.Date {
	return domain.DateOf(s.clock())
}

// requireAdmin is the access gate. It must run before any store is touched.
func (s *PortalService) requireAdmin(ctx context.Context) error {
	if !auth.SessionFrom(ctx).IsAdmin {
		return domain.ErrUnauthorized
	}
	return nil
}

// Login checks credentials and returns the session moved to admin. On a
// mismatch the caller's session is returned unchanged with
// domain.ErrInvalidCredentials.
func (s *PortalService) Login(ctx context.Context, username, password string) (auth.Session, error) {
	sess := auth.SessionFrom(ctx)
	if s.verifier == nil || !s.verifier.Verify(username, password) {
		return sess, domain.ErrInvalidCredentials
	}
	s.logger.Info("admin logged in")
	return sess.Login(), nil
}

func (s *PortalService) Logout(ctx context.Context) auth.Session {
	return auth.SessionFrom(ctx).Logout()
}

func (s *PortalService) DismissReminders(ctx context.Context) auth.Session {
	return auth.SessionFrom(ctx).Dismiss()
}

// validationError folds validator errors into one message wrapped with
// sentinel.
func validationError(sentinel error, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(fields, ", "))
}
