package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
)

// Message is a single outbound e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Dialer is the subset of gomail.Dialer the sender needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers messages over SMTP.
type Sender struct {
	from   string
	dialer Dialer
}

// New builds an SMTP sender from configuration.
func New(cfg config.SMTPConfig) (*Sender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return NewWithDialer(cfg.FromEmail, gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)), nil
}

// NewWithDialer wires a sender over an arbitrary dialer.
func NewWithDialer(from string, dialer Dialer) *Sender {
	return &Sender{from: from, dialer: dialer}
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}
