// SPDX-License-Identifier: Apache-2.0

// Package mailer delivers the account-security notifications: verification
// codes, email links, and change confirmations. Delivery is synchronous and
// never retried here; callers decide what a failed send means for the state
// transition it accompanies.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
)

// Sender delivers one plain-text message to one recipient. A nil error means
// the relay accepted the message, not that it was delivered.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// smtpSender is the production [Sender] speaking SMTP with plain auth.
type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewSMTPSender constructs a [Sender] for the configured relay.
func NewSMTPSender(cfg config.SMTP, logger *logger.Logger) Sender {
	return &smtpSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Send connects, authenticates, and submits the message. The configured
// timeout bounds the dial; SMTP conversation deadlines ride on the same
// connection deadline.
func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	log := logger.FromContext(ctx)

	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	conn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		log.Err(err).Str("func", "*smtpSender.Send").Msg("error: smtp dial failed")
		return fmt.Errorf("smtp dial: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("smtp deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			log.Err(err).Str("func", "*smtpSender.Send").Msg("error: smtp auth failed")
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(s.buildMessage(to, subject, body))); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

// buildMessage assembles the RFC 5322 envelope. Headers are CRLF-terminated
// and the subject is kept to a single line.
func (s *smtpSender) buildMessage(to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.fromName, s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(subject, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
