package mpesa

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Simulator stands in for Daraja in demo mode. Pushes always succeed and stay
// pending until completed through the demo endpoints.
type Simulator struct{}

func NewSimulator() *Simulator { return &Simulator{} }

func (s *Simulator) Mode() Mode { return ModeSimulator }

func (s *Simulator) Push(_ context.Context, r PushRequest) (*PushResult, error) {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return &PushResult{
		CheckoutRequestID:   "ws_CO_DEMO_" + id[:20],
		MerchantRequestID:   "DEMO-" + id[20:],
		TransactionID:       "DEMO_" + id,
		ResponseDescription: "Demo payment initiated successfully.",
		CustomerMessage:     "Demo mode: no prompt was sent to " + FormatPhone(r.Phone),
	}, nil
}

func (s *Simulator) Query(_ context.Context, _ string) (*QueryResult, error) {
	return &QueryResult{Outcome: OutcomePending, ResultDesc: "Demo payment awaiting completion"}, nil
}

// ReceiptNumber fabricates an M-Pesa style receipt for demo completions.
func ReceiptNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "REC" + id[:10]
}
