package mailer

import (
	"context"
	"errors"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun delivers rendered messages through the Mailgun API.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

var _ Sender = (*Mailgun)(nil)

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Sender: sender, client: mg.NewMailgun(domain, apiKey)}
}

// Send uses html as the HTML part when present. The caller's context bounds the request.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if m == nil || m.client == nil {
		return errors.New("mailgun not configured")
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	msg.AddTag("auth")
	_, _, err := m.client.Send(ctx, msg)
	return err
}
