package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"deliveryhub/internal/identity"
	"deliveryhub/internal/models"
)

// TokenRepo persists refresh tokens by sha256 hash.
type TokenRepo struct {
	collection *mongo.Collection
}

func NewTokenRepo(db *mongo.Database) *TokenRepo {
	return &TokenRepo{collection: db.Collection("refresh_tokens")}
}

func (r *TokenRepo) Insert(ctx context.Context, token *models.RefreshToken) error {
	res, err := r.collection.InsertOne(ctx, token)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		token.ID = id
	}
	return nil
}

func (r *TokenRepo) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.collection.FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&token); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &identity.NotFoundError{Message: "refresh token not found"}
		}
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepo) DeleteByHash(ctx context.Context, hash string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"tokenHash": hash})
	return err
}

func (r *TokenRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
