// Package review sends "please review your order" emails for orders that
// have not been notified yet and records each successful send.
package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/JonMunkholm/reviews/internal/core"
	"github.com/JonMunkholm/reviews/internal/database"
	"github.com/JonMunkholm/reviews/internal/logging"
	"github.com/JonMunkholm/reviews/internal/mailer"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrDeliveryFailed is returned when at least one order could not be
// emailed or marked. The other orders of the batch are still processed.
var ErrDeliveryFailed = errors.New("review email delivery failed")

var errNoCustomerEmail = errors.New("no customer email")

// markTimeout bounds recording a send. The mark runs even after the run
// is cancelled, so a delivered email is never left unmarked.
const markTimeout = 10 * time.Second

// Store is the subset of database.Querier the sender uses.
type Store interface {
	ListUnsentOrders(ctx context.Context, limit int32) ([]database.ListUnsentOrdersRow, error)
	ListOrderItems(ctx context.Context, orderID int32) ([]database.ListOrderItemsRow, error)
	MarkOrderMailSent(ctx context.Context, arg database.MarkOrderMailSentParams) (int64, error)
}

// Service renders and sends review request emails.
type Service struct {
	store   Store
	sender  mailer.Sender
	from    string
	subject string
	now     func() time.Time
}

// NewService creates a Service. subject is a fmt format receiving the order reference.
func NewService(store Store, sender mailer.Sender, from, subject string) *Service {
	return &Service{
		store:   store,
		sender:  sender,
		from:    from,
		subject: subject,
		now:     time.Now,
	}
}

// Outcome is what happened to one order.
type Outcome struct {
	OrderRef string
	Email    string
	Err      error

	// AlreadyMarked means the email went out but another run had
	// flagged the order first.
	AlreadyMarked bool
}

// Result summarises one run.
type Result struct {
	Pending  int
	Sent     int
	Failed   int
	Outcomes []Outcome
}

// SendPending emails every unsent order, oldest first, up to limit orders
// (0 means all, as does a limit outside the int32 range). A failing order is logged and skipped; the returned error
// wraps ErrDeliveryFailed when any order failed.
func (s *Service) SendPending(ctx context.Context, limit int) (*Result, error) {
	logger := logging.FromContext(ctx)

	if limit < 0 || limit > math.MaxInt32 {
		limit = 0
	}
	orders, err := s.store.ListUnsentOrders(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list unsent orders: %w", err)
	}

	res := &Result{Pending: len(orders)}
	logger.Info("sending review emails", "pending", len(orders), "limit", limit)

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("review run interrupted after %d orders: %w", res.Sent+res.Failed, err)
		}

		out := s.sendOne(ctx, order)
		res.Outcomes = append(res.Outcomes, out)
		if out.Err != nil {
			res.Failed++
		} else {
			res.Sent++
		}
	}

	logger.Info("review emails done", "sent", res.Sent, "failed", res.Failed)

	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d of %d orders", ErrDeliveryFailed, res.Failed, res.Pending)
	}
	return res, nil
}

func (s *Service) sendOne(ctx context.Context, order database.ListUnsentOrdersRow) Outcome {
	email := strings.TrimSpace(order.CustomerEmail)
	out := Outcome{OrderRef: order.OrderRef, Email: email}
	logger := logging.WithFields(ctx, "order_id", order.ID, "order_ref", order.OrderRef, "to", email)

	fail := func(step string, err error) Outcome {
		out.Err = fmt.Errorf("%s: %w", step, err)
		logger.Error("review email failed", "step", step, "error", err, "code", core.MapError(out.Err).Code)
		return out
	}

	if email == "" {
		return fail("prepare", errNoCustomerEmail)
	}

	msg, err := s.compose(ctx, order, email)
	if err != nil {
		return fail("render", err)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fail("send", err)
	}

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()

	n, err := s.store.MarkOrderMailSent(markCtx, database.MarkOrderMailSentParams{
		ID:         order.ID,
		MailSentAt: pgtype.Timestamptz{Time: s.now(), Valid: true},
	})
	if err != nil {
		return fail("mark sent", err)
	}
	if n == 0 {
		out.AlreadyMarked = true
		logger.Warn("order was already marked as sent by another run")
	}

	logger.Info("review email sent")
	return out
}

// compose builds the message for one order.
func (s *Service) compose(ctx context.Context, order database.ListUnsentOrdersRow, email string) (mailer.Message, error) {
	items, err := s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("list items: %w", err)
	}

	data := EmailData{
		CustomerName: strings.TrimSpace(order.CustomerName.String),
		OrderRef:     order.OrderRef,
		Shop:         order.Shop,
		Total:        core.FormatAmount(order.Total),
	}
	for _, it := range items {
		data.Products = append(data.Products, ProductLine{
			Reference: it.Reference,
			Name:      it.Name.String,
			Quantity:  it.Quantity,
		})
	}

	var html bytes.Buffer
	if err := ReviewEmail(data).Render(ctx, &html); err != nil {
		return mailer.Message{}, err
	}

	return mailer.Message{
		From:    s.from,
		To:      email,
		Subject: fmt.Sprintf(s.subject, order.OrderRef),
		Text:    PlainText(data),
		HTML:    html.String(),
	}, nil
}

// WriteSummary prints one line per order followed by the totals.
func (r *Result) WriteSummary(w io.Writer) error {
	var b strings.Builder

	if r.Pending == 0 {
		b.WriteString("No orders are waiting for a review email.\n")
	}
	for _, o := range r.Outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(&b, "Failed to send review request email for order %s to %s: %v\n", o.OrderRef, o.Email, o.Err)
		case o.AlreadyMarked:
			fmt.Fprintf(&b, "Review request email sent to %s (order %s was already marked)\n", o.Email, o.OrderRef)
		default:
			fmt.Fprintf(&b, "Review request email sent to %s\n", o.Email)
		}
	}
	fmt.Fprintf(&b, "\nSent: %d, failed: %d, pending at start: %d\n", r.Sent, r.Failed, r.Pending)

	_, err := io.WriteString(w, b.String())
	return err
}
