package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPPurpose binds a code to the flow it was issued for.
type OTPPurpose string

const (
	OTPVerification  OTPPurpose = "verification"
	OTPPasswordReset OTPPurpose = "password_reset"
)

// OTPCode is an ephemeral one-time code bound to (email, purpose).
// The store keeps a TTL index on expiresAt, so expired codes are purged
// without a scheduler; validity is still checked at read time.
type OTPCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Code      string             `bson:"code" json:"code"`
	Purpose   OTPPurpose         `bson:"purpose" json:"purpose"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
