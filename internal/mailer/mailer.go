// Package mailer delivers rendered emails through SMTP or, for local
// development, to a console writer.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/reviews/internal/config"
	"github.com/wneessen/go-mail"
)

// Message is one outbound email with an HTML part and a plain-text alternative.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("no recipient")

// New returns the Sender selected by cfg.Transport. Console output goes to stdout.
func New(cfg config.MailConfig, stdout io.Writer) (Sender, error) {
	switch strings.ToLower(cfg.Transport) {
	case "smtp":
		return NewSMTPSender(cfg)
	case "console":
		return NewConsoleSender(stdout), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// build converts msg into a go-mail message, validating both addresses.
func build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, ErrNoRecipient
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("set from %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
