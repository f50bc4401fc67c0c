package domain

import (
	"strings"
	"time"
)

// Slot is one fixed entry of the document catalogue. A slot holds at most
// one stored file.
type Slot struct {
	Category string
	Name     string
}

// FileStem is the filename prefix under which the slot's file is stored.
// Path separators in the slot name are replaced so the file stays inside
// the upload directory.
func (s Slot) FileStem() string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(s.Name)
}

// StoredFile is the physical file currently bound to a slot.
type StoredFile struct {
	Slot        Slot
	Filename    string
	Extension   string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// CalendarEvent is one academic calendar activity. EndDate is nil for
// single-day events.
type CalendarEvent struct {
	Activity  string `json:"activity"`
	StartDate Date   `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
}

// DefaultContentType is served for files whose extension is not in the
// content type table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// AllowedExtensions lists the upload allow-list in display order.
var AllowedExtensions = []string{".pdf", ".docx", ".txt", ".xlsx"}

// NormalizeExtension lower-cases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// AllowedExtension reports whether ext may be uploaded.
func AllowedExtension(ext string) bool {
	_, ok := contentTypes[NormalizeExtension(ext)]
	return ok
}

// ContentTypeFor maps a file extension to its declared content type.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[NormalizeExtension(ext)]; ok {
		return ct
	}
	return DefaultContentType
}

// Notification delivery outcomes.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationRecord is one logged email attempt.
type NotificationRecord struct {
	ID         string
	Recipient  string
	Subject    string
	Attachment string
	Status     string
	Error      string
	CreatedAt  time.Time
}
