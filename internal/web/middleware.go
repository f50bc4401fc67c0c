package web

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"github.com/vbonduro/examportal/internal/auth"
)

const sessionCookieName = "examportal_session"

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"form-action 'self'; "+
				"frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type tokenContextKey struct{}

// withSession attaches the caller's session to the request context. A
// missing or unknown cookie yields a visitor session that is only stored
// once its state changes.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			token string
			sess  auth.Session
		)
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if stored, ok := s.sessions.Get(c.Value); ok {
				token, sess = c.Value, stored
			}
		}

		ctx := auth.WithSession(r.Context(), sess)
		ctx = context.WithValue(ctx, tokenContextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey{}).(string)
	return token
}

// saveSession stores sess for the current request, creating the session
// and its cookie when the request has none.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess auth.Session) error {
	if token := sessionToken(r); token != "" && s.sessions.Update(token, sess) {
		return nil
	}
	token, err := s.sessions.Create(sess)
	if err != nil {
		return err
	}
	s.setSessionCookie(w, token)
	return nil
}

// rotateSession replaces the request's session token with a new one
// holding sess. Used on privilege changes.
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request, sess auth.Session) error {
	token, err := s.sessions.Create(sess)
	if err != nil {
		return err
	}
	if old := sessionToken(r); old != "" {
		s.sessions.Delete(old)
	}
	s.setSessionCookie(w, token)
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// csrf protects every form submission. Requests are marked plaintext when
// the portal is served without TLS so the origin check does not demand
// an https referer.
func (s *Server) csrf(next http.Handler) http.Handler {
	if s.opts.CSRFKey == nil {
		return next
	}
	protect := csrf.Protect(
		s.opts.CSRFKey,
		csrf.Secure(s.opts.SecureCookies),
		csrf.Path("/"),
		csrf.FieldName("csrf_token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "invalid or missing form token", http.StatusForbidden)
		})),
	)(next)
	if s.opts.SecureCookies {
		return protect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// csrfField returns the hidden form field, or nothing when CSRF is off.
func csrfField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}
