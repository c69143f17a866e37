package infra

import (
	"fmt"
	"net/smtp"

	"rentalhub/internal/config"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// Mailer sends plain-text messages with an optional file attachment. Without
// an SMTP host it only logs what it would have sent.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Enabled reports whether a real SMTP relay is configured.
func (m *Mailer) Enabled() bool { return m.host != "" }

func (m *Mailer) Send(to, subject, body, attachmentPath string) error {
	if !m.Enabled() {
		log.Info().Str("to", to).Str("subject", subject).Str("attachment", attachmentPath).
			Msg("mailer: SMTP not configured, message logged only")
		return nil
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if attachmentPath != "" {
		if _, err := e.AttachFile(attachmentPath); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", attachmentPath, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
