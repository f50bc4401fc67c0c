package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/examportal/internal/service"
)

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.CalendarBoard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderPage(w, http.StatusOK, s.pageData(r, "calendar", map[string]any{
		"Board": board,
	}), "pages/calendar.html")
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	in := service.EventInput{
		Activity:  strings.TrimSpace(r.FormValue("activity")),
		StartDate: strings.TrimSpace(r.FormValue("start_date")),
		EndDate:   strings.TrimSpace(r.FormValue("end_date")),
	}
	if _, err := s.service.AddCalendarEvent(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

func (s *Server) handleDismissReminders(w http.ResponseWriter, r *http.Request) {
	if err := s.saveSession(w, r, s.service.DismissReminders(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, safeReturnPath(r.FormValue("return_to")), http.StatusSeeOther)
}

// safeReturnPath only allows local absolute paths.
func safeReturnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
