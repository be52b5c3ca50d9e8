package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/models"
)

// Claims is the signed access-token payload. Subject carries the user id.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates a signed access token and returns its claims.
func ParseAccessToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, &AuthenticationError{Message: "invalid token"}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &AuthenticationError{Message: "invalid token"}
	}
	return claims, nil
}

func (s *Service) issueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) issueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	plain, err := generateRefreshString()
	if err != nil {
		return "", err
	}

	now := time.Now()
	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Insert(ctx, &record); err != nil {
		return "", err
	}
	return plain, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until logout,
// bulk revocation, or expiry. Expiry is enforced lazily here: an
// expired token is deleted on presentation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	hash := hashToken(refreshToken)

	record, err := s.tokens.FindByHash(ctx, hash)
	if err != nil {
		if IsNotFound(err) {
			return "", &AuthenticationError{Message: "invalid refresh token"}
		}
		return "", err
	}

	if time.Now().After(record.ExpiresAt) {
		if err := s.tokens.DeleteByHash(ctx, hash); err != nil {
			return "", err
		}
		return "", &AuthenticationError{Message: "refresh token expired"}
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if IsNotFound(err) {
			return "", &AuthenticationError{Message: "invalid refresh token"}
		}
		return "", err
	}
	if !user.IsActive {
		return "", &AuthenticationError{Message: "account is deactivated"}
	}

	return s.issueAccessToken(user)
}

// Logout revokes one refresh token. Revoking an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteByHash(ctx, hashToken(refreshToken))
}

// revokeAllTokens deletes every refresh token owned by the user, forcing
// re-authentication on every device. Called after password changes.
func (s *Service) revokeAllTokens(ctx context.Context, userID primitive.ObjectID) error {
	return s.tokens.DeleteByUser(ctx, userID)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
