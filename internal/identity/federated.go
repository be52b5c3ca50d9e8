package identity

import (
	"context"
	"time"

	"deliveryhub/internal/models"
)

// FederatedProfile is the verified profile handed over by the external
// identity provider after its own authentication succeeded.
type FederatedProfile struct {
	ProviderID string
	Email      string
	Name       string
	Photo      string
}

// FederatedLogin links or creates an account from a provider profile
// and issues a normal session. The provider's verified-email claim is
// trusted, so this path bypasses local OTP verification.
func (s *Service) FederatedLogin(ctx context.Context, profile FederatedProfile) (*Session, error) {
	if profile.ProviderID == "" {
		return nil, &BadRequestError{Message: "providerId is required"}
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, &BadRequestError{Message: "email is required"}
	}

	user, err := s.users.FindByProviderID(ctx, profile.ProviderID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	if user == nil {
		user, err = s.linkOrCreate(ctx, profile, email)
		if err != nil {
			return nil, err
		}
	}

	if !user.IsActive {
		return nil, &AuthenticationError{Message: "account is deactivated"}
	}
	return s.startSession(ctx, user)
}

func (s *Service) linkOrCreate(ctx context.Context, profile FederatedProfile, email string) (*models.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		existing.ExternalProviderID = profile.ProviderID
		existing.IsEmailVerified = true
		if profile.Photo != "" {
			existing.ProfileImage = profile.Photo
		}
		existing.UpdatedAt = time.Now()

		if err := s.users.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.cacheInvalidate(ctx, existing.ID)
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	user := models.User{
		Email:              email,
		Name:               profile.Name,
		Role:               models.RoleClient,
		Addresses:          []models.Address{},
		IsEmailVerified:    true,
		IsActive:           true,
		ExternalProviderID: profile.ProviderID,
		ProfileImage:       profile.Photo,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	user.AttachRolePayload()

	if err := s.users.Insert(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
