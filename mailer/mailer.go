package mailer

import (
	"fmt"

	"merx/config"

	"gopkg.in/gomail.v2"
)

// Mailer sends plain-text notification mail over SMTP. Callers treat
// delivery as best-effort; a failed send never fails the request that
// triggered it.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.MailFrom,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(msg)
}
