package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"deliveryhub/internal/identity"
	"deliveryhub/internal/models"
)

// OTPRepo persists one-time codes in the otp_codes collection. A TTL
// index on expiresAt (database.EnsureOTPIndexes) purges expired codes;
// Consume still filters on expiry so TTL-monitor lag never revives one.
type OTPRepo struct {
	collection *mongo.Collection
}

func NewOTPRepo(db *mongo.Database) *OTPRepo {
	return &OTPRepo{collection: db.Collection("otp_codes")}
}

func (r *OTPRepo) DeleteByPurpose(ctx context.Context, email string, purpose models.OTPPurpose) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{
		"email":   email,
		"purpose": purpose,
	})
	return err
}

func (r *OTPRepo) Insert(ctx context.Context, code *models.OTPCode) error {
	_, err := r.collection.InsertOne(ctx, code)
	return err
}

// Consume atomically finds and deletes a matching, unexpired code.
func (r *OTPRepo) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) error {
	err := r.collection.FindOneAndDelete(ctx, bson.M{
		"email":     email,
		"code":      code,
		"purpose":   purpose,
		"expiresAt": bson.M{"$gt": now},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &identity.BadRequestError{Message: "invalid or expired code"}
	}
	return err
}
