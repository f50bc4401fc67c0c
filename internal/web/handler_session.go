package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/examportal/internal/domain"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.pageData(r, "login", map[string]any{
		"Error":    "",
		"Username": "",
	}), "pages/login.html")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	sess, err := s.service.Login(r.Context(), username, r.FormValue("password"))
	if errors.Is(err, domain.ErrInvalidCredentials) {
		s.logger.Warn("failed login attempt", "remote_addr", r.RemoteAddr)
		s.renderPage(w, http.StatusUnauthorized, s.pageData(r, "login", map[string]any{
			"Error":    err.Error(),
			"Username": username,
		}), "pages/login.html")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.rotateSession(w, r, sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.rotateSession(w, r, s.service.Logout(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
