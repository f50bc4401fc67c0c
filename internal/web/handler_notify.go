package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/domain"
	"github.com/vbonduro/examportal/internal/service"
)

func (s *Server) handleNotifyPage(w http.ResponseWriter, r *http.Request) {
	if !s.notifyAllowed(w, r) {
		return
	}
	s.renderNotify(w, r, http.StatusOK, map[string]any{})
}

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	if !s.notifyAllowed(w, r) {
		return
	}

	in := service.NotificationInput{
		To:      strings.TrimSpace(r.FormValue("to")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Body:    r.FormValue("body"),
	}
	// The attachment select submits "category/index"; empty means none.
	if ref := r.FormValue("attachment"); ref != "" {
		cat, idx, ok := strings.Cut(ref, "/")
		n, err := strconv.Atoi(idx)
		if !ok || err != nil {
			http.Error(w, "invalid attachment", http.StatusBadRequest)
			return
		}
		in.AttachCategory, in.AttachIndex = cat, n
	}

	if err := s.service.SendNotification(r.Context(), in); err != nil {
		status, msg := errorStatus(err)
		// Admins see the relay's own reason.
		if errors.Is(err, domain.ErrTransport) {
			msg = err.Error()
		}
		s.logger.Warn("notification failed", "recipient", in.To, "status", status, "error", err)
		s.renderNotify(w, r, status, map[string]any{"Error": msg, "Form": in})
		return
	}
	s.renderNotify(w, r, http.StatusOK, map[string]any{"Sent": in.To})
}

// notifyAllowed rejects visitors and disabled notifiers before any work.
func (s *Server) notifyAllowed(w http.ResponseWriter, r *http.Request) bool {
	if !s.service.NotifyEnabled() {
		s.writeError(w, r, domain.ErrFeatureDisabled)
		return false
	}
	if !auth.SessionFrom(r.Context()).IsAdmin {
		s.writeError(w, r, domain.ErrUnauthorized)
		return false
	}
	return true
}

func (s *Server) renderNotify(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	recent, err := s.service.RecentNotifications(r.Context())
	if err != nil {
		s.logger.Error("failed to load notification history", "error", err)
	}
	data["Recent"] = recent
	data["Attachments"] = s.attachableDocuments(r)
	s.renderPage(w, status, s.pageData(r, "notify", data), "pages/notify.html")
}

type attachmentOption struct {
	Value string
	Label string
}

// attachableDocuments lists slots that currently hold a file.
func (s *Server) attachableDocuments(r *http.Request) []attachmentOption {
	var out []attachmentOption
	for _, cat := range s.service.Categories() {
		_, slots, err := s.service.ListDocuments(r.Context(), cat.Key)
		if err != nil {
			s.logger.Error("failed to list documents", "category", cat.Key, "error", err)
			continue
		}
		for _, sv := range slots {
			if !sv.Exists() {
				continue
			}
			out = append(out, attachmentOption{
				Value: cat.Key + "/" + strconv.Itoa(sv.Index),
				Label: cat.Title + " / " + sv.File.Filename,
			})
		}
	}
	return out
}
