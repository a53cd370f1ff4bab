package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/repository/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mode    mpesa.Mode
	pushErr error
	outcome mpesa.Outcome
	seq     int
	pushed  []mpesa.PushRequest
}

func (g *fakeGateway) Mode() mpesa.Mode { return g.mode }

func (g *fakeGateway) Push(_ context.Context, r mpesa.PushRequest) (*mpesa.PushResult, error) {
	if g.pushErr != nil {
		return nil, g.pushErr
	}
	g.seq++
	g.pushed = append(g.pushed, r)
	checkout := fmt.Sprintf("ws_CO_%04d", g.seq)
	tx := checkout
	if g.mode == mpesa.ModeSimulator {
		tx = fmt.Sprintf("DEMO_%04d", g.seq)
	}
	return &mpesa.PushResult{
		CheckoutRequestID: checkout,
		MerchantRequestID: fmt.Sprintf("mr-%04d", g.seq),
		TransactionID:     tx,
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *fakeGateway) Query(_ context.Context, _ string) (*mpesa.QueryResult, error) {
	if g.outcome == "" {
		return &mpesa.QueryResult{Outcome: mpesa.OutcomePending}, nil
	}
	return &mpesa.QueryResult{Outcome: g.outcome, ResultDesc: "queried"}, nil
}

type recordingNotifier struct {
	sent []*model.Payment
	err  error
}

func (n *recordingNotifier) PaymentCompleted(_ context.Context, _ *model.User, p *model.Payment) error {
	n.sent = append(n.sent, p)
	return n.err
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	st       *memory.Stores
	clock    *clock
	gw       *fakeGateway
	mail     *recordingNotifier
	tokens   *middleware.Tokens
	payments *PaymentService
	access   *ConnectionService
	listings *ListingService
	reviews  *ReviewService
	auth     *AuthService
	activity *ActivityService
}

var epoch = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, mode mpesa.Mode) *fixture {
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		st:     memory.New(),
		clock:  &clock{t: epoch},
		gw:     &fakeGateway{mode: mode},
		mail:   &recordingNotifier{},
		tokens: middleware.NewTokens("test-secret", time.Hour),
	}
	f.access = NewConnectionService(f.st.Connections, f.st.Listings, f.st.Users, f.st.Payments)
	f.access.now = f.clock.now
	f.listings = NewListingService(f.st.Listings, f.st.Users, f.st.Photos, f.access)
	f.listings.now = f.clock.now
	f.payments = NewPaymentService(PaymentDeps{
		Payments:    f.st.Payments,
		Listings:    f.st.Listings,
		Users:       f.st.Users,
		Connections: f.st.Connections,
		Gateway:     f.gw,
		Configured:  mode == mpesa.ModeDaraja,
		Journal:     f.st.Journal,
		Notifier:    f.mail,
		Pricing:     model.DefaultPricing(),
	})
	f.payments.now = f.clock.now
	f.reviews = NewReviewService(f.st.Reviews, f.st.Listings, f.st.Connections)
	f.reviews.now = f.clock.now
	f.auth = NewAuthService(f.st.Users, f.tokens)
	f.auth.now = f.clock.now
	f.activity = NewActivityService(f.st.Listings, f.st.Payments, f.st.Reviews, f.st.Users)
	f.activity.now = f.clock.now
	return f
}

func (f *fixture) user(role model.Role, name string) *model.User {
	u := &model.User{
		Name:      name,
		Email:     name + "@example.com",
		Phone:     "0712345678",
		Role:      role,
		CreatedAt: f.clock.now(),
	}
	require.NoError(f.t, f.st.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) listing(landlord *model.User, title string) *model.Listing {
	l, err := f.listings.Create(f.ctx, landlord.ID, ListingInput{
		Title:        title,
		Description:  "Close to campus",
		Price:        8000,
		Location:     model.Location{County: "Nairobi", Town: "Kahawa"},
		PropertyType: model.PropertyBedsitter,
	})
	require.NoError(f.t, err)
	return l
}

// paidListing is a listing whose listing fee has gone through.
func (f *fixture) paidListing(landlord *model.User, title string) *model.Listing {
	l := f.listing(landlord, title)
	require.NoError(f.t, f.st.Listings.Activate(f.ctx, l.ID, f.clock.now().Add(model.AccessPeriod)))
	got, err := f.st.Listings.GetByID(f.ctx, l.ID)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) initiate(payer *model.User, t model.PaymentType, listing *model.Listing) *InitiateResult {
	req := InitiateRequest{Amount: 100, PaymentType: t, PhoneNumber: "0712345678"}
	if listing != nil {
		req.ListingID = listing.ID.Hex()
	}
	res, err := f.payments.Initiate(f.ctx, payer.ID, req)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) complete(p *model.Payment) *ResolveResult {
	out, err := f.payments.Resolve(f.ctx, p.ID, model.Resolution{
		Status:        model.PaymentCompleted,
		ReceiptNumber: "NLJ7RT61SV",
		ResolvedAt:    f.clock.now(),
	})
	require.NoError(f.t, err)
	return out
}

func (f *fixture) payment(id primitive.ObjectID) *model.Payment {
	p, err := f.st.Payments.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return p
}

var errStore = errors.New("store unavailable")
