package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/reviews/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTPSender delivers messages through an SMTP server, one connection per message.
type SMTPSender struct {
	client  *mail.Client
	timeout time.Duration
}

// NewSMTPSender configures a client from cfg. No connection is made until Send.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &SMTPSender{client: client, timeout: cfg.Timeout}, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch name {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown TLS policy %q", name)
	}
}

// Send delivers msg, giving up after the configured timeout.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := build(msg)
	if err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp deliver to %s: %w", msg.To, err)
	}
	return nil
}
