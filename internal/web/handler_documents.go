package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/vbonduro/examportal/internal/domain"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("category")
	cat, slots, err := s.service.ListDocuments(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.renderPage(w, http.StatusOK, s.pageData(r, key, map[string]any{
		"Category": cat,
		"Slots":    slots,
	}), "pages/documents.html")
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	key, index, err := parseSlot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	if _, err := s.service.UploadDocument(r.Context(), key, index, header.Filename, file); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/documents/"+key, http.StatusSeeOther)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	key, index, err := parseSlot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.service.DeleteDocument(r.Context(), key, index); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/documents/"+key, http.StatusSeeOther)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	key, index, err := parseSlot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, f, err := s.service.OpenDocument(r.Context(), key, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeWithLog(rc, "document", s.logger)

	h := w.Header()
	h.Set("Content-Type", f.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	h.Set("Content-Length", strconv.FormatInt(f.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("download interrupted", "file", f.Filename, "error", err)
	}
}

// parseSlot extracts the {category} and 1-based {slot} path variables.
func parseSlot(r *http.Request) (string, int, error) {
	key := r.PathValue("category")
	index, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		return "", 0, fmt.Errorf("slot %q: %w", r.PathValue("slot"), domain.ErrUnknownSlot)
	}
	return key, index, nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
