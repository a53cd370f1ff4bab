package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
)

func (r Role) Valid() bool { return r == RoleTenant || r == RoleLandlord }

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionPending  SubscriptionStatus = "pending"
)

type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Email              string             `bson:"email" json:"email"`
	PasswordHash       string             `bson:"password" json:"-"`
	Phone              string             `bson:"phone" json:"phone"`
	Role               Role               `bson:"userType" json:"userType"`
	University         string             `bson:"university,omitempty" json:"university,omitempty"`
	SubscriptionStatus SubscriptionStatus `bson:"subscriptionStatus" json:"subscriptionStatus"`
	SubscriptionExpiry *time.Time         `bson:"subscriptionExpiry,omitempty" json:"subscriptionExpiry,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

// Contact is the landlord detail a tenant pays to see.
type Contact struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Phone string             `json:"phone,omitempty"`
	Email string             `json:"email,omitempty"`
}

func (u *User) Contact() Contact {
	return Contact{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email}
}
