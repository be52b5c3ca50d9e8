package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/models"
)

type AddressInput struct {
	Title     string
	Detail    string
	Note      string
	IsDefault bool
}

// AddAddress appends an address. The first address a user adds becomes
// the default automatically; flagging a later one default clears the
// flag on every other entry.
func (s *Service) AddAddress(ctx context.Context, userID primitive.ObjectID, input AddressInput) (*models.Address, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.IsDefault {
		clearDefaults(user.Addresses)
	}

	address := models.Address{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(input.Title),
		Detail:    strings.TrimSpace(input.Detail),
		Note:      strings.TrimSpace(input.Note),
		IsDefault: input.IsDefault,
	}
	user.Addresses = append(user.Addresses, address)
	normalizeDefaultAddress(user.Addresses)

	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, userID)

	return &user.Addresses[len(user.Addresses)-1], nil
}

// UpdateAddress replaces the fields of one address and re-establishes
// the single-default invariant.
func (s *Service) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, input AddressInput) (*models.Address, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, addr := range user.Addresses {
		if addr.ID == addressID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, &NotFoundError{Message: "address not found"}
	}

	if input.IsDefault {
		clearDefaults(user.Addresses)
	}

	user.Addresses[index].Title = strings.TrimSpace(input.Title)
	user.Addresses[index].Detail = strings.TrimSpace(input.Detail)
	user.Addresses[index].Note = strings.TrimSpace(input.Note)
	user.Addresses[index].IsDefault = input.IsDefault
	normalizeDefaultAddress(user.Addresses)

	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, userID)

	return &user.Addresses[index], nil
}

// DeleteAddress removes one address. Removing the default promotes the
// first remaining address.
func (s *Service) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	remaining := make([]models.Address, 0, len(user.Addresses))
	found := false
	for _, addr := range user.Addresses {
		if addr.ID == addressID {
			found = true
			continue
		}
		remaining = append(remaining, addr)
	}
	if !found {
		return &NotFoundError{Message: "address not found"}
	}

	normalizeDefaultAddress(remaining)
	user.Addresses = remaining

	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, userID)
	return nil
}

func clearDefaults(addresses []models.Address) {
	for i := range addresses {
		addresses[i].IsDefault = false
	}
}

// normalizeDefaultAddress enforces that a non-empty list has exactly
// one default: extra flags beyond the first are cleared, and a list
// with none gets its first entry promoted.
func normalizeDefaultAddress(addresses []models.Address) {
	if len(addresses) == 0 {
		return
	}

	seen := false
	for i := range addresses {
		if addresses[i].IsDefault {
			if seen {
				addresses[i].IsDefault = false
				continue
			}
			seen = true
		}
	}
	if !seen {
		addresses[0].IsDefault = true
	}
}
