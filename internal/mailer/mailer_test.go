package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/reviews/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func testMessage() Message {
	return Message{
		From:    "noreply@inflate.review",
		To:      "jane@example.org",
		Subject: "Partagez votre avis sur votre commande ORD-1",
		Text:    "Bonjour Jane, merci pour votre commande ORD-1.",
		HTML:    "<p>Bonjour <strong>Jane</strong></p>",
	}
}

func TestNew_SelectsTransport(t *testing.T) {
	cfg := config.MailConfig{Host: "localhost", Port: 2525, TLSPolicy: "none", Timeout: time.Second}

	cfg.Transport = "console"
	s, err := New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &ConsoleSender{}, s)

	cfg.Transport = "smtp"
	s, err = New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	cfg.Transport = "pigeon"
	_, err = New(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestTLSPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want mail.TLSPolicy
	}{
		{"", mail.TLSOpportunistic},
		{"opportunistic", mail.TLSOpportunistic},
		{"mandatory", mail.TLSMandatory},
		{"none", mail.NoTLS},
	}
	for _, tt := range tests {
		got, err := tlsPolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := tlsPolicy("sometimes")
	assert.Error(t, err)
}

func TestNewSMTPSender_WithAuth(t *testing.T) {
	s, err := NewSMTPSender(config.MailConfig{
		Host: "smtp.example.com", Port: 587, Username: "user", Password: "secret",
		TLSPolicy: "mandatory", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.timeout)
}

func TestConsoleSender_WritesMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleSender(&buf).Send(context.Background(), testMessage()))

	out := buf.String()
	assert.Contains(t, out, "----- message to jane@example.org -----")
	assert.Contains(t, out, "Subject: Partagez votre avis sur votre commande ORD-1")
	assert.Contains(t, out, "<jane@example.org>")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
	assert.True(t, strings.HasSuffix(out, "----- end of message -----\n"))
}

func TestConsoleSender_PlainTextOnly(t *testing.T) {
	msg := testMessage()
	msg.HTML = ""

	var buf bytes.Buffer
	require.NoError(t, NewConsoleSender(&buf).Send(context.Background(), msg))
	assert.NotContains(t, buf.String(), "text/html")
}

func TestConsoleSender_RejectsBadMessages(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender(&buf)

	msg := testMessage()
	msg.To = ""
	assert.True(t, errors.Is(s.Send(context.Background(), msg), ErrNoRecipient))

	msg = testMessage()
	msg.To = "not an address"
	assert.Error(t, s.Send(context.Background(), msg))

	msg = testMessage()
	msg.From = "@@"
	assert.Error(t, s.Send(context.Background(), msg))

	assert.Empty(t, buf.String())
}

func TestConsoleSender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewConsoleSender(&bytes.Buffer{}).Send(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}
