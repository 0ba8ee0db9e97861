// Package mail sends transactional email: staff invitations and invoice
// copies.
package mail

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type Attachment struct {
	Name string
	Data []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages through an SMTP relay, one connection per
// message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := compose(m.from, msg)
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func compose(from string, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return gm
}

// LogMailer records messages instead of sending them. It is used when no SMTP
// host is configured.
type LogMailer struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mail").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("mail not sent, no SMTP host configured")
	return nil
}

// Sent returns a copy of the messages recorded so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
