package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/IMINABO1/Vault/server/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var logg = logger.NewLogger("mailer")

// Mailer sends plain notification e-mails through SendGrid.
type Mailer struct {
	apiKey  string
	baseURL string
	from    *mail.Email
}

func NewMailer(apiKey, fromEmail, fromName string) *Mailer {
	return &Mailer{apiKey: apiKey, from: mail.NewEmail(fromName, fromEmail)}
}

// NewMailerWithBaseURL points the client at another API host.
func NewMailerWithBaseURL(apiKey, fromEmail, fromName, baseURL string) *Mailer {
	m := NewMailer(apiKey, fromEmail, fromName)
	m.baseURL = strings.TrimSuffix(baseURL, "/") + "/v3/mail/send"
	return m
}

// Send is safe for concurrent use. Each call builds its own client.
func (m *Mailer) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toEmail), body, htmlBody(body))

	client := sendgrid.NewSendClient(m.apiKey)
	if m.baseURL != "" {
		client.BaseURL = m.baseURL
	}

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %v", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}

	logg.Infof("E-mail %q sent to %v", subject, toEmail)
	return nil
}

func htmlBody(body string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
}
