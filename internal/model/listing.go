package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyType string

const (
	PropertySingleRoom PropertyType = "single-room"
	PropertyBedsitter  PropertyType = "bedsitter"
	PropertyOneBedroom PropertyType = "1-bedroom"
	PropertyTwoBedroom PropertyType = "2-bedroom"
	PropertyThreeBed   PropertyType = "3-bedroom"
	PropertySharedRoom PropertyType = "shared-room"
)

var propertyTypes = map[PropertyType]bool{
	PropertySingleRoom: true,
	PropertyBedsitter:  true,
	PropertyOneBedroom: true,
	PropertyTwoBedroom: true,
	PropertyThreeBed:   true,
	PropertySharedRoom: true,
}

func (t PropertyType) Valid() bool { return propertyTypes[t] }

type ListingPaymentStatus string

const (
	ListingPaymentPending ListingPaymentStatus = "pending"
	ListingPaymentPaid    ListingPaymentStatus = "paid"
	ListingPaymentExpired ListingPaymentStatus = "expired"
)

type Availability string

const (
	Available    Availability = "available"
	NotAvailable Availability = "not_available"
)

// MaxListingImages caps the photos stored per listing.
const MaxListingImages = 5

type Location struct {
	County  string `bson:"county" json:"county"`
	Town    string `bson:"town" json:"town"`
	Address string `bson:"address" json:"address"`
}

type NearbyUniversity struct {
	Name     string `bson:"name" json:"name"`
	Distance string `bson:"distance" json:"distance"`
}

// Listing is a property posted by a landlord. It appears in public search
// only while active, paid and available.
type Listing struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title               string               `bson:"title" json:"title"`
	Description         string               `bson:"description" json:"description"`
	Price               float64              `bson:"price" json:"price"`
	Location            Location             `bson:"location" json:"location"`
	PropertyType        PropertyType         `bson:"propertyType" json:"propertyType"`
	Amenities           []string             `bson:"amenities" json:"amenities"`
	Images              []string             `bson:"images" json:"images"`
	LandlordID          primitive.ObjectID   `bson:"landlord" json:"landlord"`
	NearbyUniversities  []NearbyUniversity   `bson:"nearbyUniversities" json:"nearbyUniversities"`
	IsActive            bool                 `bson:"isActive" json:"isActive"`
	PaymentStatus       ListingPaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaymentExpiry       *time.Time           `bson:"paymentExpiry,omitempty" json:"paymentExpiry,omitempty"`
	Views               int64                `bson:"views" json:"views"`
	AvailabilityStatus  Availability         `bson:"availabilityStatus" json:"availabilityStatus"`
	MarkedUnavailableAt *time.Time           `bson:"markedUnavailableAt,omitempty" json:"markedUnavailableAt,omitempty"`
	ScheduledDeletionAt *time.Time           `bson:"scheduledDeletionAt,omitempty" json:"scheduledDeletionAt,omitempty"`
	CreatedAt           time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Searchable reports whether tenants may see the listing in public search.
func (l *Listing) Searchable() bool {
	return l.IsActive && l.PaymentStatus == ListingPaymentPaid && l.AvailabilityStatus == Available
}

// ListingFilter narrows the public search. Zero values are ignored.
type ListingFilter struct {
	County       string
	Town         string
	PropertyType PropertyType
	MinPrice     *float64
	MaxPrice     *float64
	University   string
	Limit        int
	Offset       int
}

// DeletedListing is one line of a cleanup manifest.
type DeletedListing struct {
	ID                  primitive.ObjectID `json:"id"`
	Title               string             `json:"title"`
	MarkedUnavailableAt *time.Time         `json:"markedUnavailableAt,omitempty"`
}

type CleanupManifest struct {
	DeletedCount    int              `json:"deletedCount"`
	DeletedListings []DeletedListing `json:"deletedListings"`
}

// ListingDetail is a listing as shown on its own page. Landlord phone and
// e-mail are only filled in when ContactUnlocked is true.
type ListingDetail struct {
	Listing
	Landlord        *Contact `json:"landlordDetails,omitempty"`
	ContactUnlocked bool     `json:"contactUnlocked"`
}

// PendingDeletion is a listing the cleanup will remove soon.
type PendingDeletion struct {
	ID                  primitive.ObjectID `json:"id"`
	Title               string             `json:"title"`
	MarkedUnavailableAt *time.Time         `json:"markedUnavailableAt,omitempty"`
	ScheduledDeletionAt *time.Time         `json:"scheduledDeletionAt,omitempty"`
}
