// Package notify sends one-off emails to a single recipient, optionally
// with a document attached.
package notify

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Notifier delivers a Message. Errors wrap domain.ErrTransport.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Raw HTML in the body is escaped since WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderHTML turns a plain-text/markdown body into the HTML alternative.
func renderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NoopNotifier logs messages instead of sending them.
type NoopNotifier struct{}

func (NoopNotifier) Send(_ context.Context, msg Message) error {
	attachment := ""
	if msg.Attachment != nil {
		attachment = msg.Attachment.Filename
	}
	slog.Info("notification not sent (noop backend)",
		"recipient", msg.To, "subject", msg.Subject, "attachment", attachment)
	return nil
}
