package mailer

import (
	"context"
	"fmt"
	"io"
)

// ConsoleSender writes each message in MIME form to a writer instead of
// sending it.
type ConsoleSender struct {
	w io.Writer
}

// NewConsoleSender returns a sender writing to w.
func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

// Send implements Sender.
func (c *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := build(msg)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(c.w, "----- message to %s -----\n", msg.To); err != nil {
		return err
	}
	if _, err := m.WriteTo(c.w); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	_, err = fmt.Fprintln(c.w, "\n----- end of message -----")
	return err
}
