// Package notify sends payment receipts by e-mail.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jimmygitz3/final-project/internal/model"
)

type SMTPConfig struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Sender string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Sender != ""
}

// Sender delivers one message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer e-mails a receipt when a payment completes.
type Mailer struct {
	from   string
	sender Sender
}

func NewMailer(cfg SMTPConfig) *Mailer {
	port := cfg.Port
	if port == 0 {
		port = 465
	}
	return &Mailer{from: cfg.Sender, sender: gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)}
}

func (m *Mailer) PaymentCompleted(ctx context.Context, u *model.User, p *model.Payment) error {
	if u.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := receipt(m.from, u, p)
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send receipt to %s: %w", u.Email, err)
	}
	log.Printf("[notify] receipt for payment %s sent to %s", p.ID.Hex(), u.Email)
	return nil
}

func receipt(from string, u *model.User, p *model.Payment) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", u.Email)
	m.SetHeader("Subject", "Payment received: "+p.PaymentType.Label())

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", u.Name)
	fmt.Fprintf(&b, "We have received your payment of KES %.0f for %s.\n\n", p.Amount, p.Description)
	if p.ReceiptNumber != "" {
		fmt.Fprintf(&b, "M-Pesa receipt: %s\n", p.ReceiptNumber)
	}
	if p.ResolvedAt != nil {
		fmt.Fprintf(&b, "Date: %s\n", p.ResolvedAt.Format(time.RFC1123))
		fmt.Fprintf(&b, "Valid until: %s\n", p.ResolvedAt.Add(model.AccessPeriod).Format("2 Jan 2006"))
	}
	m.SetBody("text/plain", b.String())
	return m
}
