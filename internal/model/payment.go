package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentType string

const (
	PaymentListingFee    PaymentType = "listing_fee"
	PaymentConnectionFee PaymentType = "connection_fee"
	PaymentSubscription  PaymentType = "subscription"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentListingFee, PaymentConnectionFee, PaymentSubscription:
		return true
	}
	return false
}

// NeedsListing reports whether the payment must target a listing.
func (t PaymentType) NeedsListing() bool {
	return t == PaymentListingFee || t == PaymentConnectionFee
}

func (t PaymentType) Label() string {
	switch t {
	case PaymentListingFee:
		return "Listing fee"
	case PaymentConnectionFee:
		return "Connection fee"
	case PaymentSubscription:
		return "Subscription"
	}
	return string(t)
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

// EffectStatus tracks the side effect of a completed payment separately from
// the payment status so that a crash between the two writes can be repaired.
type EffectStatus string

const (
	EffectPending  EffectStatus = "pending"
	EffectApplied  EffectStatus = "applied"
	EffectRejected EffectStatus = "rejected"
	EffectSkipped  EffectStatus = "skipped"
)

// AccessPeriod is how long a paid listing, connection or subscription lasts.
const AccessPeriod = 30 * 24 * time.Hour

type Payment struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID  `bson:"user" json:"user"`
	ListingID         *primitive.ObjectID `bson:"listing,omitempty" json:"listing,omitempty"`
	PaymentType       PaymentType         `bson:"paymentType" json:"paymentType"`
	Amount            float64             `bson:"amount" json:"amount"`
	PhoneNumber       string              `bson:"phoneNumber" json:"phoneNumber"`
	TransactionID     string              `bson:"mpesaTransactionId" json:"mpesaTransactionId"`
	ReceiptNumber     string              `bson:"mpesaReceiptNumber,omitempty" json:"mpesaReceiptNumber,omitempty"`
	MerchantRequestID string              `bson:"merchantRequestId,omitempty" json:"merchantRequestId,omitempty"`
	CheckoutRequestID string              `bson:"checkoutRequestId,omitempty" json:"checkoutRequestId,omitempty"`
	TransactionDate   *time.Time          `bson:"transactionDate,omitempty" json:"transactionDate,omitempty"`
	Status            PaymentStatus       `bson:"status" json:"status"`
	ResultDesc        string              `bson:"resultDesc,omitempty" json:"resultDesc,omitempty"`
	Description       string              `bson:"description" json:"description"`
	Gateway           string              `bson:"gateway" json:"gateway"`
	EffectStatus      EffectStatus        `bson:"effectStatus" json:"effectStatus"`
	EffectError       string              `bson:"effectError,omitempty" json:"effectError,omitempty"`
	ResolvedAt        *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Resolution is the terminal outcome written onto a pending payment.
type Resolution struct {
	Status          PaymentStatus
	ReceiptNumber   string
	TransactionDate time.Time
	ResultDesc      string
	ResolvedAt      time.Time
}

// Pricing lists the base amounts in KES.
type Pricing struct {
	ListingFee      int `json:"listingFee"`
	ConnectionFee   int `json:"connectionFee"`
	SubscriptionFee int `json:"subscriptionFee"`
}

func DefaultPricing() Pricing {
	return Pricing{ListingFee: 500, ConnectionFee: 100, SubscriptionFee: 1000}
}

// CallbackEntry is one gateway callback delivery as kept in the journal.
type CallbackEntry struct {
	ID                int64     `db:"id" json:"id"`
	CheckoutRequestID string    `db:"checkout_request_id" json:"checkoutRequestId"`
	MerchantRequestID string    `db:"merchant_request_id" json:"merchantRequestId"`
	ResultCode        int       `db:"result_code" json:"resultCode"`
	ResultDesc        string    `db:"result_desc" json:"resultDesc"`
	Success           bool      `db:"success" json:"success"`
	PaymentID         string    `db:"payment_id" json:"paymentId"`
	Outcome           string    `db:"outcome" json:"outcome"`
	ProcessingError   string    `db:"processing_error" json:"processingError"`
	Payload           string    `db:"payload" json:"payload"`
	ReceivedAt        time.Time `db:"received_at" json:"receivedAt"`
}

// PaymentRecord is a history row with the listing title resolved.
type PaymentRecord struct {
	Payment
	ListingDetails *ListingSummary `json:"listingDetails,omitempty"`
}

// ListingFeeStatus answers whether a listing's fee has been paid.
type ListingFeeStatus struct {
	Paid          bool       `json:"paid"`
	PaymentDate   *time.Time `json:"paymentDate,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	ReceiptNumber string     `json:"receiptNumber,omitempty"`
	Amount        float64    `json:"amount,omitempty"`
	Message       string     `json:"message,omitempty"`
}
