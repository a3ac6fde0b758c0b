package mailer

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/noah-isme/sma-advisory-api/pkg/config"
)

// Mailer delivers a single email. Implementations report delivery as a
// plain error; callers decide whether a failure is fatal.
type Mailer interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host string
	port int
	auth smtp.Auth
	from string
}

// NewSMTP builds an SMTPMailer from mail configuration.
func NewSMTP(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		host: cfg.Host,
		port: cfg.Port,
		auth: auth,
		from: cfg.From,
	}
}

// Send delivers a multipart/alternative message with text and HTML parts.
func (m *SMTPMailer) Send(to, subject, htmlBody, textBody string) error {
	if to == "" {
		return fmt.Errorf("empty recipient address")
	}

	msg := buildMessage(m.from, to, subject, htmlBody, textBody)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody, textBody string) []byte {
	const boundary = "advisory-mail-boundary"

	if textBody == "" {
		textBody = stripTags(htmlBody)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
