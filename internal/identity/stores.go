package identity

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/models"
)

// UserStore is the persistence port for identity records. Insert relies
// on a store-level unique email constraint and reports a duplicate as
// *ConflictError; lookups report a missing record as *NotFoundError.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// OTPStore persists one-time codes. Consume is the single atomic
// lookup-and-delete of a matching, unexpired code; a miss is reported
// as *BadRequestError so expired and wrong codes are indistinguishable
// to callers.
type OTPStore interface {
	DeleteByPurpose(ctx context.Context, email string, purpose models.OTPPurpose) error
	Insert(ctx context.Context, code *models.OTPCode) error
	Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) error
}

// TokenStore persists refresh tokens by hash. FindByHash reports a
// missing token as *NotFoundError; deletes are idempotent.
type TokenStore interface {
	Insert(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	DeleteByHash(ctx context.Context, hash string) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}
