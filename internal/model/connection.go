package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionExpired ConnectionStatus = "expired"
)

// Connection unlocks one landlord's contact details for one tenant on one
// listing. At most one exists per (tenant, listing).
type Connection struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID          primitive.ObjectID `bson:"tenant" json:"tenant"`
	LandlordID        primitive.ObjectID `bson:"landlord" json:"landlord"`
	ListingID         primitive.ObjectID `bson:"listing" json:"listing"`
	PaymentID         primitive.ObjectID `bson:"payment" json:"payment"`
	Status            ConnectionStatus   `bson:"status" json:"status"`
	ContactUnlockedAt time.Time          `bson:"contactUnlockedAt" json:"contactUnlockedAt"`
	ExpiresAt         time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// Grants is evaluated at read time; expired rows are never swept.
func (c *Connection) Grants(now time.Time) bool {
	return c.Status == ConnectionActive && now.Before(c.ExpiresAt)
}

type AccessCheck struct {
	HasAccess   bool        `json:"hasAccess"`
	Connection  *Connection `json:"connection,omitempty"`
	PaymentDate *time.Time  `json:"paymentDate,omitempty"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty"`
	Message     string      `json:"message,omitempty"`
}

type ListingSummary struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Location Location           `json:"location"`
	Price    float64            `json:"price"`
}

type PaymentSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Amount    float64            `json:"amount"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ConnectionView is a connection with its references resolved.
type ConnectionView struct {
	Connection
	Listing  *ListingSummary `json:"listingDetails,omitempty"`
	Landlord *Contact        `json:"landlordDetails,omitempty"`
	Payment  *PaymentSummary `json:"paymentDetails,omitempty"`
}
