package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureUserIndexes creates the unique email index that serializes
// concurrent registrations, plus a partial-unique index on the external
// provider id for federated lookups.
func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	providerIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "externalProviderId", Value: 1}},
		Options: options.Index().
			SetName("externalProviderId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"externalProviderId": bson.M{
					"$exists": true,
				},
			}),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	if _, err := indexes.CreateOne(ctx, emailIndex); err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}

	log.Println("EnsureUserIndexes: creating externalProviderId_unique index")
	if _, err := indexes.CreateOne(ctx, providerIndex); err != nil {
		log.Println("EnsureUserIndexes: provider index error:", err)
		return err
	}
	return nil
}

// EnsureOTPIndexes creates the TTL index that evicts expired codes and a
// compound index backing the (email, purpose) lookups on issue and verify.
func EnsureOTPIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("otp_codes").Indexes()

	ttlIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetName("expiresAt_ttl").
			SetExpireAfterSeconds(0),
	}

	lookupIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "email", Value: 1},
			{Key: "purpose", Value: 1},
		},
		Options: options.Index().SetName("email_purpose_index"),
	}

	log.Println("EnsureOTPIndexes: creating expiresAt_ttl index")
	if _, err := indexes.CreateOne(ctx, ttlIndex); err != nil {
		log.Println("EnsureOTPIndexes: ttl index error:", err)
		return err
	}

	log.Println("EnsureOTPIndexes: creating email_purpose_index")
	if _, err := indexes.CreateOne(ctx, lookupIndex); err != nil {
		log.Println("EnsureOTPIndexes: lookup index error:", err)
		return err
	}
	return nil
}

// EnsureRefreshTokenIndexes creates the unique token-hash index, the
// userId index backing bulk revocation, and a TTL index so tokens whose
// owners never return are eventually purged.
func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	hashIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().
			SetName("tokenHash_unique").
			SetUnique(true),
	}

	userIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}

	ttlIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetName("expiresAt_ttl").
			SetExpireAfterSeconds(0),
	}

	log.Println("EnsureRefreshTokenIndexes: creating tokenHash_unique index")
	if _, err := indexes.CreateOne(ctx, hashIndex); err != nil {
		log.Println("EnsureRefreshTokenIndexes: tokenHash index error:", err)
		return err
	}

	log.Println("EnsureRefreshTokenIndexes: creating userId_index")
	if _, err := indexes.CreateOne(ctx, userIndex); err != nil {
		log.Println("EnsureRefreshTokenIndexes: userId index error:", err)
		return err
	}

	log.Println("EnsureRefreshTokenIndexes: creating expiresAt_ttl index")
	if _, err := indexes.CreateOne(ctx, ttlIndex); err != nil {
		log.Println("EnsureRefreshTokenIndexes: ttl index error:", err)
		return err
	}
	return nil
}
