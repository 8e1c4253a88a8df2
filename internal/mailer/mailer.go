package mailer

import (
	"fmt"
	"log/slog"
	"time"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends transactional mail over SMTP. A nil *Mailer is valid and sends
// nothing, so callers never need to branch on whether SMTP is configured.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// New returns a Mailer, or nil when host is empty (mail disabled).
func New(host string, port int, username, password, sender string) *Mailer {
	if host == "" {
		return nil
	}
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 5 * time.Second
	return &Mailer{dialer: d, sender: sender}
}

// SendWelcomeAsync sends the post-signup welcome mail in the background.
// Failures are logged, never surfaced: signup must not depend on SMTP.
func (m *Mailer) SendWelcomeAsync(to, username string) {
	if m == nil {
		return
	}
	go func() {
		if err := m.sendWelcome(to, username); err != nil {
			slog.Error("welcome mail", "to", to, "error", err)
		}
	}()
}

func (m *Mailer) sendWelcome(to, username string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Welcome to Todo App")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour account is ready. Log in to start tracking your todos.\n", username))
	return m.dialer.DialAndSend(msg)
}
