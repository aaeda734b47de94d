// Package notify mails the exported report to the configured account.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jordan-wright/email"

	"github.com/aluiziolira/go-scrape-bursaries/config"
)

// ErrCredentialsMissing is returned when EMAIL_USER or EMAIL_PASS is unset.
var ErrCredentialsMissing = errors.New("notify: email credentials missing")

const reportBody = "Please find attached the latest list of bursaries including closing dates."

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Mailer sends the report from the configured account to itself.
type Mailer struct {
	host  string
	port  int
	creds config.Credentials
	send  sendFunc
}

// NewMailer builds a Mailer for the SMTP server in cfg.
func NewMailer(cfg *config.Config, creds config.Credentials) *Mailer {
	return &Mailer{
		host:  cfg.SMTPHost,
		port:  cfg.SMTPPort,
		creds: creds,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Subject is the report subject for the given day.
func Subject(now time.Time) string {
	return "Bursary Report (With Deadlines) - " + now.Format("2006-01-02")
}

// Compose builds the message with the file at path attached.
func (m *Mailer) Compose(path string, now time.Time) (*email.Email, error) {
	if !m.creds.Complete() {
		return nil, ErrCredentialsMissing
	}

	mail := email.NewEmail()
	mail.From = m.creds.User
	mail.To = []string{m.creds.User}
	mail.Subject = Subject(now)
	mail.Text = []byte(reportBody)
	if _, err := mail.AttachFile(path); err != nil {
		return nil, fmt.Errorf("attach %q: %w", filepath.Base(path), err)
	}
	return mail, nil
}

// Send mails the report. smtp.SendMail upgrades to STARTTLS before
// authenticating.
func (m *Mailer) Send(ctx context.Context, path string, now time.Time) error {
	mail, err := m.Compose(path, now)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	auth := smtp.PlainAuth("", m.creds.User, m.creds.Password, m.host)
	if err := m.send(mail, addr, auth); err != nil {
		return fmt.Errorf("send report via %s: %w", addr, err)
	}

	slog.Info("report emailed",
		slog.String("to", m.creds.User),
		slog.String("attachment", filepath.Base(path)),
	)
	return nil
}
