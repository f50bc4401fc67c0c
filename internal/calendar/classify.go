// Package calendar sorts academic calendar events into upcoming, ongoing
// and past activities relative to a given day.
package calendar

import (
	"fmt"
	"slices"

	"github.com/vbonduro/examportal/internal/domain"
)

const (
	LabelEnded   = "Ended"
	LabelOngoing = "Ongoing"
	LabelToday   = "Today!"

	// ReminderWindowDays is the furthest ahead an activity is announced
	// in the reminders sidebar.
	ReminderWindowDays = 10
)

// Tone is the display treatment of an entry.
type Tone string

const (
	ToneUpcoming Tone = "upcoming"
	ToneImminent Tone = "imminent"
	ToneOngoing  Tone = "ongoing"
	TonePast     Tone = "past"
)

// Entry is one classified event.
type Entry struct {
	Activity      string
	StartDate     domain.Date
	EndDate       *domain.Date
	Label         string
	DaysRemaining int
	Tone          Tone
}

// EndDisplay renders the end date or "N/A" for single-day events.
func (e Entry) EndDisplay() string {
	if e.EndDate == nil {
		return "N/A"
	}
	return e.EndDate.Display()
}

// Board partitions events; each list is ordered by start date.
type Board struct {
	Upcoming []Entry
	Ongoing  []Entry
	Past     []Entry
}

func (b Board) Empty() bool {
	return len(b.Upcoming) == 0 && len(b.Ongoing) == 0 && len(b.Past) == 0
}

// Classify places every event in exactly one of the board's lists. Rules
// apply in order:
//  1. end date before today: past, "Ended"
//  2. start <= today <= end (or start when there is no end): ongoing
//  3. otherwise upcoming, with a day countdown when the start is still
//     ahead and "Today!" when it is not
func Classify(today domain.Date, events []domain.CalendarEvent) Board {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b domain.CalendarEvent) int {
		return a.StartDate.Compare(b.StartDate)
	})

	var board Board
	for _, ev := range sorted {
		entry := Entry{
			Activity:      ev.Activity,
			StartDate:     ev.StartDate,
			EndDate:       ev.EndDate,
			DaysRemaining: today.DaysUntil(ev.StartDate),
		}

		last := ev.StartDate
		if ev.EndDate != nil {
			last = *ev.EndDate
		}

		switch {
		case ev.EndDate != nil && ev.EndDate.Before(today):
			entry.Label, entry.Tone = LabelEnded, TonePast
			board.Past = append(board.Past, entry)
		case !ev.StartDate.After(today) && !today.After(last):
			entry.Label, entry.Tone = LabelOngoing, ToneOngoing
			board.Ongoing = append(board.Ongoing, entry)
		default:
			if entry.DaysRemaining > 0 {
				entry.Label, entry.Tone = fmt.Sprintf("%d days remaining", entry.DaysRemaining), ToneUpcoming
			} else {
				entry.Label, entry.Tone = LabelToday, ToneImminent
			}
			board.Upcoming = append(board.Upcoming, entry)
		}
	}
	return board
}

// Reminder announces an activity starting soon.
type Reminder struct {
	Activity      string
	StartDate     domain.Date
	DaysRemaining int
}

// Reminders returns events starting between 1 and ReminderWindowDays days
// after today, in their stored order.
func Reminders(today domain.Date, events []domain.CalendarEvent) []Reminder {
	var out []Reminder
	for _, ev := range events {
		days := today.DaysUntil(ev.StartDate)
		if days > 0 && days <= ReminderWindowDays {
			out = append(out, Reminder{Activity: ev.Activity, StartDate: ev.StartDate, DaysRemaining: days})
		}
	}
	return out
}
