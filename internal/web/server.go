package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/calendar"
	"github.com/vbonduro/examportal/internal/domain"
	"github.com/vbonduro/examportal/internal/service"
)

// Options tunes the HTTP layer. A nil CSRFKey disables CSRF protection,
// which only tests should do.
type Options struct {
	CSRFKey        []byte
	SecureCookies  bool
	MaxUploadBytes int64
}

type Server struct {
	service   *service.PortalService
	templates fs.FS
	sessions  *auth.SessionStore
	mux       *http.ServeMux
	handler   http.Handler
	tmplFuncs template.FuncMap
	logger    *slog.Logger
	opts      Options
}

func NewServer(svc *service.PortalService, tmpl fs.FS, sessions *auth.SessionStore, opts Options, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	s := &Server{
		service:   svc,
		templates: tmpl,
		sessions:  sessions,
		mux:       http.NewServeMux(),
		logger:    logger,
		opts:      opts,
		tmplFuncs: template.FuncMap{
			"inc":        func(i int) int { return i + 1 },
			"humanBytes": humanBytes,
			"sections":   boardSections,
		},
	}
	s.registerRoutes()
	s.handler = requestLogger(logger, securityHeaders(s.withSession(s.csrf(s.mux))))
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /documents/{category}", s.handleListDocuments)
	s.mux.HandleFunc("POST /documents/{category}/{slot}", s.handleUploadDocument)
	s.mux.HandleFunc("POST /documents/{category}/{slot}/delete", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /documents/{category}/{slot}/download", s.handleDownloadDocument)
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /calendar/events", s.handleAddEvent)
	s.mux.HandleFunc("POST /reminders/dismiss", s.handleDismissReminders)
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /notify", s.handleNotifyPage)
	s.mux.HandleFunc("POST /notify", s.handleSendNotification)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	cats := s.service.Categories()
	if len(cats) == 0 {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/documents/"+cats[0].Key, http.StatusSeeOther)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// pageData merges the layout fields every page needs into data.
func (s *Server) pageData(r *http.Request, active string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["Session"] = auth.SessionFrom(r.Context())
	data["ActiveNav"] = active
	data["Path"] = r.URL.Path
	data["Categories"] = s.service.Categories()
	data["CalendarEnabled"] = s.service.CalendarEnabled()
	data["NotifyEnabled"] = s.service.NotifyEnabled()
	data["Reminders"] = s.service.Reminders(r.Context())
	data["CSRFField"] = csrfField(r)
	return data
}

// renderPage parses and executes a full-page template set. Output is
// buffered so a template error never leaves a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, append([]string{"base.html"}, files...)...)
	if err != nil {
		s.logger.Error("template parse failed", "files", files, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.Error("template execute failed", "files", files, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// humanBytes formats a file size for display.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

type boardSection struct {
	Title   string
	Entries []calendar.Entry
}

func boardSections(b calendar.Board) []boardSection {
	return []boardSection{
		{Title: "Upcoming", Entries: b.Upcoming},
		{Title: "Ongoing", Entries: b.Ongoing},
		{Title: "Past", Entries: b.Past},
	}
}

// errorStatus maps domain errors to an HTTP status and a message safe to
// show. Unknown errors are internal.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.target.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

var errorMappings = []struct {
	target error
	status int
}{
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrUnknownSlot, http.StatusNotFound},
	{domain.ErrFeatureDisabled, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType},
	{domain.ErrInvalidEvent, http.StatusBadRequest},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrPersistence, http.StatusInternalServerError},
	{domain.ErrTransport, http.StatusBadGateway},
}

// writeError logs err and replies with the mapped status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, msg, status)
}
