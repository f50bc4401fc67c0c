package service

import (
	"context"
	"fmt"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/calendar"
	"github.com/vbonduro/examportal/internal/domain"
)

// EventInput is the raw add-event form.
type EventInput struct {
	Activity  string `validate:"required,max=200"`
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// CalendarBoard classifies the stored events against today. A calendar
// that cannot be read is shown as empty.
func (s *PortalService) CalendarBoard(ctx context.Context) (calendar.Board, error) {
	if s.calendar == nil {
		return calendar.Board{}, domain.ErrFeatureDisabled
	}
	return calendar.Classify(s.today(), s.loadEvents(ctx)), nil
}

// Reminders returns events starting soon, or nothing when the session has
// dismissed them or the calendar is disabled.
func (s *PortalService) Reminders(ctx context.Context) []calendar.Reminder {
	if s.calendar == nil {
		return nil
	}
	if auth.SessionFrom(ctx).NotificationDismissed {
		return nil
	}
	return calendar.Reminders(s.today(), s.loadEvents(ctx))
}

func (s *PortalService) AddCalendarEvent(ctx context.Context, in EventInput) (domain.CalendarEvent, error) {
	if s.calendar == nil {
		return domain.CalendarEvent{}, domain.ErrFeatureDisabled
	}
	if err := s.requireAdmin(ctx); err != nil {
		return domain.CalendarEvent{}, err
	}
	ev, err := s.parseEvent(in)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	if err := s.calendar.Append(ctx, ev); err != nil {
		return domain.CalendarEvent{}, err
	}
	s.logger.Info("calendar event added", "activity", ev.Activity, "start_date", ev.StartDate.String())
	return ev, nil
}

func (s *PortalService) parseEvent(in EventInput) (domain.CalendarEvent, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.CalendarEvent{}, validationError(domain.ErrInvalidEvent, err)
	}
	start, err := domain.ParseDate(in.StartDate)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	// A single-day activity ends on its start date.
	ev := domain.CalendarEvent{Activity: in.Activity, StartDate: start, EndDate: &start}
	if in.EndDate != "" {
		end, err := domain.ParseDate(in.EndDate)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
		}
		if end.Before(start) {
			return domain.CalendarEvent{}, fmt.Errorf("%w: end date before start date", domain.ErrInvalidEvent)
		}
		ev.EndDate = &end
	}
	return ev, nil
}

func (s *PortalService) loadEvents(ctx context.Context) []domain.CalendarEvent {
	events, err := s.calendar.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load calendar", "error", err)
		return nil
	}
	return events
}
