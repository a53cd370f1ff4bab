package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jimmygitz3/final-project/internal/model"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func TestMailerSendsReceipt(t *testing.T) {
	cs := &captureSender{}
	m := &Mailer{from: "noreply@kejah.test", sender: cs}
	resolved := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	p := &model.Payment{
		PaymentType:   model.PaymentListingFee,
		Amount:        500,
		Description:   "Listing fee payment",
		ReceiptNumber: "NLJ7RT61SV",
		ResolvedAt:    &resolved,
	}

	require.NoError(t, m.PaymentCompleted(context.Background(), &model.User{Name: "Amina", Email: "amina@example.com"}, p))
	require.Len(t, cs.sent, 1)
	assert.Equal(t, []string{"amina@example.com"}, cs.sent[0].GetHeader("To"))

	var buf bytes.Buffer
	_, err := cs.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NLJ7RT61SV")
	assert.Contains(t, buf.String(), "KES 500")
}

func TestMailerSkipsUsersWithoutEmail(t *testing.T) {
	cs := &captureSender{}
	m := &Mailer{sender: cs}
	require.NoError(t, m.PaymentCompleted(context.Background(), &model.User{}, &model.Payment{}))
	assert.Empty(t, cs.sent)
}

func TestMailerReportsSendFailure(t *testing.T) {
	cs := &captureSender{err: errors.New("connection refused")}
	m := &Mailer{sender: cs}
	err := m.PaymentCompleted(context.Background(), &model.User{Email: "a@b.c"}, &model.Payment{})
	assert.Error(t, err)
}
