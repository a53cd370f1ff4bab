package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/repository"
)

// reconcileBatch bounds how many payments one Reconcile pass repairs.
const reconcileBatch = 100

// PaymentService runs the payment workflow: push initiation, resolution by
// callback, query or demo completion, and the effect of a completed payment.
type PaymentService struct {
	payments    PaymentStore
	listings    ListingStore
	users       UserStore
	connections ConnectionStore
	gateway     mpesa.Gateway
	configured  bool
	journal     CallbackJournal
	notifier    Notifier
	pricing     model.Pricing
	now         func() time.Time
}

type PaymentDeps struct {
	Payments    PaymentStore
	Listings    ListingStore
	Users       UserStore
	Connections ConnectionStore
	Gateway     mpesa.Gateway
	// Configured reports whether real Daraja credentials were supplied.
	Configured bool
	Journal    CallbackJournal
	Notifier   Notifier
	Pricing    model.Pricing
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	return &PaymentService{
		payments:    d.Payments,
		listings:    d.Listings,
		users:       d.Users,
		connections: d.Connections,
		gateway:     d.Gateway,
		configured:  d.Configured,
		journal:     d.Journal,
		notifier:    d.Notifier,
		pricing:     d.Pricing,
		now:         time.Now,
	}
}

type InitiateRequest struct {
	Amount      float64           `json:"amount"`
	PaymentType model.PaymentType `json:"paymentType"`
	PhoneNumber string            `json:"phoneNumber"`
	ListingID   string            `json:"listingId" binding:"omitempty,objectid"`
	Description string            `json:"description"`
}

type InitiateResult struct {
	Payment           *model.Payment `json:"payment"`
	TransactionID     string         `json:"transactionId"`
	CheckoutRequestID string         `json:"checkoutRequestId"`
	MerchantRequestID string         `json:"merchantRequestId"`
	CustomerMessage   string         `json:"customerMessage"`
	Demo              bool           `json:"demo"`
}

// Initiate validates the request against the payer and the target listing,
// sends the push and stores a pending payment.
func (s *PaymentService) Initiate(ctx context.Context, payerID primitive.ObjectID, req InitiateRequest) (*InitiateResult, error) {
	if req.Amount <= 0 || req.PaymentType == "" {
		return nil, apperr.Validation("Amount and payment type are required")
	}
	if !req.PaymentType.Valid() {
		return nil, apperr.Validation("Invalid payment type %q", req.PaymentType)
	}
	payer, err := s.users.GetByID(ctx, payerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated("User not found")
		}
		return nil, fmt.Errorf("PaymentService.Initiate: %w", err)
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" && req.PaymentType == model.PaymentSubscription {
		phone = payer.Phone
	}
	if phone == "" {
		return nil, apperr.Validation("Phone number is required")
	}
	phone = mpesa.FormatPhone(phone)
	if !mpesa.ValidPhone(phone) {
		return nil, apperr.Validation("Invalid phone number format. Use format: 254XXXXXXXXX")
	}

	var listing *model.Listing
	if req.PaymentType.NeedsListing() {
		if req.ListingID == "" {
			return nil, apperr.Validation("Listing ID is required for %s payments", req.PaymentType.Label())
		}
		listingID, err := primitive.ObjectIDFromHex(req.ListingID)
		if err != nil {
			return nil, apperr.Validation("Invalid listing ID")
		}
		listing, err = s.listings.GetByID(ctx, listingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("Listing not found")
			}
			return nil, fmt.Errorf("PaymentService.Initiate: %w", err)
		}
	}

	switch req.PaymentType {
	case model.PaymentListingFee:
		if listing.LandlordID != payer.ID {
			return nil, apperr.Forbidden("Not authorized to pay for this listing")
		}
		paid, err := s.payments.LatestCompleted(ctx, listing.ID, model.PaymentListingFee)
		if err == nil {
			return nil, apperr.Conflict(map[string]interface{}{
				"paymentDate":   paid.CreatedAt,
				"receiptNumber": paid.ReceiptNumber,
			}, "Listing fee already paid")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("PaymentService.Initiate: %w", err)
		}
	case model.PaymentConnectionFee:
		conn, err := s.connections.Get(ctx, payer.ID, listing.ID)
		if err == nil && conn.Grants(s.now()) {
			return nil, apperr.Conflict(map[string]interface{}{
				"expiresAt": conn.ExpiresAt,
			}, "Already connected to this listing")
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("PaymentService.Initiate: %w", err)
		}
	case model.PaymentSubscription:
		if payer.Role != model.RoleLandlord {
			return nil, apperr.Forbidden("Only landlords can subscribe")
		}
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = req.PaymentType.Label() + " payment"
	}
	ref := string(req.PaymentType)
	if listing != nil {
		ref = listing.ID.Hex()
	}

	push, err := s.gateway.Push(ctx, mpesa.PushRequest{
		Phone:       phone,
		Amount:      int(math.Round(req.Amount)),
		Reference:   ref,
		Description: desc,
	})
	if err != nil {
		log.Printf("[PaymentService] push for user %s failed: %v", payer.ID.Hex(), err)
		return nil, gatewayError(err, "Failed to initiate payment")
	}

	now := s.now()
	p := &model.Payment{
		UserID:            payer.ID,
		PaymentType:       req.PaymentType,
		Amount:            req.Amount,
		PhoneNumber:       phone,
		TransactionID:     push.TransactionID,
		MerchantRequestID: push.MerchantRequestID,
		CheckoutRequestID: push.CheckoutRequestID,
		Status:            model.PaymentPending,
		Description:       desc,
		Gateway:           string(s.gateway.Mode()),
		EffectStatus:      model.EffectPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if listing != nil {
		id := listing.ID
		p.ListingID = &id
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("PaymentService.Initiate: %w", err)
	}
	log.Printf("[PaymentService] %s payment %s initiated via %s (checkout %s)",
		p.PaymentType, p.ID.Hex(), p.Gateway, p.CheckoutRequestID)

	return &InitiateResult{
		Payment:           p,
		TransactionID:     p.TransactionID,
		CheckoutRequestID: p.CheckoutRequestID,
		MerchantRequestID: p.MerchantRequestID,
		CustomerMessage:   push.CustomerMessage,
		Demo:              s.gateway.Mode() == mpesa.ModeSimulator,
	}, nil
}

// ResolveResult reports what a resolution did. Transitioned is false when
// the payment had already left pending and nothing was written.
type ResolveResult struct {
	Payment      *model.Payment
	Transitioned bool
	EffectErr    error
}

// Resolve moves a pending payment to a terminal status and, for completed
// payments, applies its effect. Resolving a terminal payment is a no-op.
func (s *PaymentService) Resolve(ctx context.Context, id primitive.ObjectID, res model.Resolution) (*ResolveResult, error) {
	if !res.Status.Terminal() {
		return nil, apperr.Validation("Invalid payment status %q", res.Status)
	}
	if res.ResolvedAt.IsZero() {
		res.ResolvedAt = s.now()
	}

	p, err := s.payments.Resolve(ctx, id, res)
	switch {
	case errors.Is(err, repository.ErrNotPending):
		cur, err := s.payments.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("PaymentService.Resolve: %w", err)
		}
		log.Printf("[PaymentService] payment %s already %s, ignoring %s", id.Hex(), cur.Status, res.Status)
		return &ResolveResult{Payment: cur}, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("Payment not found")
	case err != nil:
		return nil, fmt.Errorf("PaymentService.Resolve: %w", err)
	}

	log.Printf("[PaymentService] payment %s -> %s", p.ID.Hex(), p.Status)
	out := &ResolveResult{Payment: p, Transitioned: true}
	if p.Status == model.PaymentCompleted {
		out.EffectErr = s.applyEffect(ctx, p)
		// no receipt for access that was refused
		if p.EffectStatus != model.EffectRejected {
			s.sendReceipt(ctx, p)
		}
	}
	return out, nil
}

// applyEffect grants what a completed payment paid for and records the
// outcome on the payment. Store failures leave the effect pending for
// Reconcile; conflicts and vanished targets reject it for good.
func (s *PaymentService) applyEffect(ctx context.Context, p *model.Payment) error {
	err := s.effect(ctx, p)
	switch {
	case err == nil:
		p.EffectStatus = model.EffectApplied
		p.EffectError = ""
	case apperr.Is(err, apperr.KindConflict), apperr.Is(err, apperr.KindNotFound):
		p.EffectStatus = model.EffectRejected
		p.EffectError = err.Error()
		log.Printf("[PaymentService] effect of payment %s rejected: %v", p.ID.Hex(), err)
	default:
		log.Printf("[PaymentService] effect of payment %s failed, left for reconcile: %v", p.ID.Hex(), err)
		return err
	}
	if serr := s.payments.SetEffect(ctx, p.ID, p.EffectStatus, p.EffectError); serr != nil {
		log.Printf("[PaymentService] recording effect of payment %s: %v", p.ID.Hex(), serr)
		return fmt.Errorf("PaymentService.applyEffect: %w", serr)
	}
	return err
}

// effect is derived only from the payment itself, so applying it twice
// writes the same state.
func (s *PaymentService) effect(ctx context.Context, p *model.Payment) error {
	resolvedAt := p.UpdatedAt
	if p.ResolvedAt != nil {
		resolvedAt = *p.ResolvedAt
	}
	expiry := resolvedAt.Add(model.AccessPeriod)

	switch p.PaymentType {
	case model.PaymentListingFee:
		if p.ListingID == nil {
			return apperr.NotFound("Listing not found")
		}
		if err := s.listings.Activate(ctx, *p.ListingID, expiry); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Listing not found")
			}
			return err
		}
	case model.PaymentConnectionFee:
		if p.ListingID == nil {
			return apperr.NotFound("Listing not found")
		}
		listing, err := s.listings.GetByID(ctx, *p.ListingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Listing not found")
			}
			return err
		}
		conn := &model.Connection{
			TenantID:          p.UserID,
			LandlordID:        listing.LandlordID,
			ListingID:         listing.ID,
			PaymentID:         p.ID,
			Status:            model.ConnectionActive,
			ContactUnlockedAt: resolvedAt,
			ExpiresAt:         expiry,
			CreatedAt:         resolvedAt,
		}
		err = s.connections.Create(ctx, conn)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		existing, err := s.connections.Get(ctx, p.UserID, listing.ID)
		if err != nil {
			return err
		}
		if existing.PaymentID == p.ID {
			return nil
		}
		if existing.Grants(resolvedAt) {
			return apperr.Conflict(nil, "Already connected to this listing")
		}
		// an expired connection is renewed in place; the unique index keeps one row
		err = s.connections.Renew(ctx, conn, existing.PaymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Conflict(nil, "Already connected to this listing")
		}
		return err
	case model.PaymentSubscription:
		if err := s.users.ActivateSubscription(ctx, p.UserID, expiry); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("User not found")
			}
			return err
		}
	}
	return nil
}

func (s *PaymentService) sendReceipt(ctx context.Context, p *model.Payment) {
	if s.notifier == nil {
		return
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		log.Printf("[PaymentService] receipt for payment %s: %v", p.ID.Hex(), err)
		return
	}
	if err := s.notifier.PaymentCompleted(ctx, u, p); err != nil {
		log.Printf("[PaymentService] receipt for payment %s not sent: %v", p.ID.Hex(), err)
	}
}

// HandleCallback processes one gateway callback delivery. Every delivery is
// journaled, matched or not.
func (s *PaymentService) HandleCallback(ctx context.Context, raw []byte) (err error) {
	cb := mpesa.ParseCallback(raw)
	entry := &model.CallbackEntry{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Success:           cb.Success,
		Payload:           string(raw),
		ReceivedAt:        s.now(),
	}
	defer func() {
		if err != nil {
			entry.ProcessingError = err.Error()
		}
		s.record(ctx, entry)
	}()

	log.Printf("[PaymentService] callback: %s", cb)
	if cb.Err != "" {
		return apperr.Validation("%s", cb.Err)
	}

	p, err := s.payments.GetByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Payment not found for checkout request %s", cb.CheckoutRequestID)
		}
		return fmt.Errorf("PaymentService.HandleCallback: %w", err)
	}
	entry.PaymentID = p.ID.Hex()

	out, err := s.Resolve(ctx, p.ID, model.Resolution{
		Status:          statusFor(cb.Outcome()),
		ReceiptNumber:   cb.ReceiptNumber,
		TransactionDate: cb.TransactionDate,
		ResultDesc:      cb.ResultDesc,
		ResolvedAt:      s.now(),
	})
	if err != nil {
		return err
	}
	entry.Outcome = string(out.Payment.Status)
	if !out.Transitioned {
		entry.Outcome = "duplicate"
	}
	return out.EffectErr
}

func (s *PaymentService) record(ctx context.Context, e *model.CallbackEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, e); err != nil {
		log.Printf("[PaymentService] journaling callback %s: %v", e.CheckoutRequestID, err)
	}
}

// CompleteDemo resolves a simulator payment by hand. It is refused when a
// real gateway is in use.
func (s *PaymentService) CompleteDemo(ctx context.Context, payerID primitive.ObjectID, transactionID string, status model.PaymentStatus) (*ResolveResult, error) {
	if s.gateway.Mode() != mpesa.ModeSimulator {
		return nil, apperr.Forbidden("Demo completion is only available in demo mode")
	}
	if transactionID == "" {
		return nil, apperr.Validation("Transaction ID is required")
	}
	if status == "" {
		status = model.PaymentCompleted
	}
	if !status.Terminal() {
		return nil, apperr.Validation("Invalid payment status %q", status)
	}

	p, err := s.payments.GetByTransactionID(ctx, payerID, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Payment not found")
		}
		return nil, fmt.Errorf("PaymentService.CompleteDemo: %w", err)
	}

	now := s.now()
	res := model.Resolution{Status: status, ResolvedAt: now, ResultDesc: "Demo payment " + string(status)}
	if status == model.PaymentCompleted {
		res.ReceiptNumber = mpesa.ReceiptNumber()
		res.TransactionDate = now
	}
	return s.Resolve(ctx, p.ID, res)
}

// Query answers from the store for terminal payments and polls the gateway
// for pending ones, resolving them when the gateway has an answer.
func (s *PaymentService) Query(ctx context.Context, payerID primitive.ObjectID, checkoutRequestID string) (*model.Payment, error) {
	if checkoutRequestID == "" {
		return nil, apperr.Validation("Checkout request ID is required")
	}
	p, err := s.payments.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Payment not found")
		}
		return nil, fmt.Errorf("PaymentService.Query: %w", err)
	}
	if p.UserID != payerID {
		return nil, apperr.NotFound("Payment not found")
	}
	if p.Status.Terminal() {
		return p, nil
	}

	q, err := s.gateway.Query(ctx, checkoutRequestID)
	if err != nil {
		return nil, gatewayError(err, "Failed to query payment status")
	}
	if q.Outcome == mpesa.OutcomePending {
		return p, nil
	}
	out, err := s.Resolve(ctx, p.ID, model.Resolution{
		Status:     statusFor(q.Outcome),
		ResultDesc: q.ResultDesc,
		ResolvedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	return out.Payment, nil
}

func (s *PaymentService) StatusByTransaction(ctx context.Context, payerID primitive.ObjectID, transactionID string) (*model.Payment, error) {
	p, err := s.payments.GetByTransactionID(ctx, payerID, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Payment not found")
		}
		return nil, fmt.Errorf("PaymentService.StatusByTransaction: %w", err)
	}
	return p, nil
}

// History lists the user's payments newest first with listing titles.
func (s *PaymentService) History(ctx context.Context, userID primitive.ObjectID) ([]model.PaymentRecord, error) {
	payments, err := s.payments.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.History: %w", err)
	}
	titles := map[primitive.ObjectID]*model.ListingSummary{}
	records := make([]model.PaymentRecord, 0, len(payments))
	for _, p := range payments {
		rec := model.PaymentRecord{Payment: p}
		if p.ListingID != nil {
			summary, seen := titles[*p.ListingID]
			if !seen {
				if l, err := s.listings.GetByID(ctx, *p.ListingID); err == nil {
					summary = &model.ListingSummary{ID: l.ID, Title: l.Title, Location: l.Location, Price: l.Price}
				}
				titles[*p.ListingID] = summary
			}
			rec.ListingDetails = summary
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PaymentService) ListingPaymentStatus(ctx context.Context, listingID primitive.ObjectID) (*model.ListingFeeStatus, error) {
	p, err := s.payments.LatestCompleted(ctx, listingID, model.PaymentListingFee)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.ListingFeeStatus{Paid: false, Message: "No payment found for this listing"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("PaymentService.ListingPaymentStatus: %w", err)
	}
	status := &model.ListingFeeStatus{
		Paid:          true,
		PaymentDate:   &p.CreatedAt,
		ReceiptNumber: p.ReceiptNumber,
		Amount:        p.Amount,
	}
	if p.ResolvedAt != nil {
		exp := p.ResolvedAt.Add(model.AccessPeriod)
		status.ExpiresAt = &exp
	}
	return status, nil
}

func (s *PaymentService) Pricing() model.Pricing { return s.pricing }

type GatewayStatus struct {
	Mode       mpesa.Mode `json:"mode"`
	Configured bool       `json:"configured"`
	Demo       bool       `json:"demo"`
}

func (s *PaymentService) GatewayStatus() GatewayStatus {
	return GatewayStatus{
		Mode:       s.gateway.Mode(),
		Configured: s.configured,
		Demo:       s.gateway.Mode() == mpesa.ModeSimulator,
	}
}

// Reconcile re-applies effects for completed payments whose effect was
// never recorded, e.g. after a crash between the two writes.
func (s *PaymentService) Reconcile(ctx context.Context) error {
	pending, err := s.payments.PendingEffects(ctx, reconcileBatch)
	if err != nil {
		return fmt.Errorf("PaymentService.Reconcile: %w", err)
	}
	var failed int
	for i := range pending {
		p := &pending[i]
		if err := s.applyEffect(ctx, p); err != nil && p.EffectStatus == model.EffectPending {
			failed++
		}
	}
	if len(pending) > 0 {
		log.Printf("[PaymentService] reconcile: %d payment(s) checked, %d still pending", len(pending), failed)
	}
	return nil
}

func statusFor(o mpesa.Outcome) model.PaymentStatus {
	switch o {
	case mpesa.OutcomeCompleted:
		return model.PaymentCompleted
	case mpesa.OutcomeCancelled:
		return model.PaymentCancelled
	case mpesa.OutcomeFailed:
		return model.PaymentFailed
	}
	return model.PaymentPending
}

func gatewayError(err error, msg string) error {
	var gw *mpesa.Error
	if errors.As(err, &gw) {
		var details interface{} = gw.Body
		if desc := gw.Description(); desc != "" {
			details = desc
		}
		return apperr.Gateway(err, details, "%s", msg)
	}
	return apperr.Gateway(err, err.Error(), "%s", msg)
}
