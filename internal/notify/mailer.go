// Package notify dispatches order lifecycle notifications over SMTP.
// Delivery is best-effort: failures are logged, never propagated.
package notify

import (
	"context"
	"fmt"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// Config holds SMTP settings for the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether the mailer has enough configuration to send.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// AddressBook resolves a user ID to an email address.
type AddressBook interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

var _ order.Notifier = (*Mailer)(nil)

// Mailer sends order confirmation emails via SMTP.
type Mailer struct {
	cfg  Config
	book AddressBook
	send func(m ...*gomail.Message) error
}

// NewMailer creates a Mailer.
func NewMailer(cfg Config, book AddressBook) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Mailer{
		cfg:  cfg,
		book: book,
		send: dialer.DialAndSend,
	}
}

// OrderCreated emails the customer their order summary. Any failure is
// logged and dropped: a lost email never affects the order.
func (m *Mailer) OrderCreated(ctx context.Context, o *order.Order) {
	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))

	to, err := m.book.EmailForUser(ctx, o.UserID)
	if err != nil {
		lg.Warn("Resolve customer email failed", zap.Error(err))
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Order %s received", o.ID))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Your order %s has been received.\nTotal: %s (items %s, discount %s, shipping %s).\nWe will notify you once payment is confirmed.",
		o.ID, o.Total, o.Subtotal, o.Discount, o.ShippingFee,
	))

	if err := m.send(msg); err != nil {
		lg.Warn("Send order confirmation failed", zap.Error(err))
		return
	}
	lg.Info("Order confirmation sent")
}
