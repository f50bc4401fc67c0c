package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/vbonduro/examportal/internal/domain"
)

// ResendNotifier sends messages through the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	html, err := renderHTML(msg.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
		Html:    html,
	}
	if a := msg.Attachment; a != nil {
		params.Attachments = []*resend.Attachment{{
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		}}
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("resend send failed", "recipient", msg.To, "subject", msg.Subject, "error", err)
		return fmt.Errorf("%w: resend: %v", domain.ErrTransport, err)
	}
	slog.Info("resend sent", "message_id", sent.Id, "recipient", msg.To, "subject", msg.Subject)
	return nil
}
