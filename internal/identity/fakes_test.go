package identity

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/cache"
	"deliveryhub/internal/models"
)

// In-memory fakes for the store ports. They mirror the contracts the
// Mongo repositories implement: typed errors, unique email, atomic
// consume. Not safe for concurrent use; tests are sequential.

type fakeUserStore struct {
	users map[primitive.ObjectID]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *fakeUserStore) Insert(_ context.Context, user *models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &ConflictError{Message: "email already registered"}
		}
	}
	user.ID = primitive.NewObjectID()
	s.users[user.ID] = *user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, &NotFoundError{Message: "user not found"}
	}
	return &user, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			user := user
			return &user, nil
		}
	}
	return nil, &NotFoundError{Message: "user not found"}
}

func (s *fakeUserStore) FindByProviderID(_ context.Context, providerID string) (*models.User, error) {
	for _, user := range s.users {
		if user.ExternalProviderID != "" && user.ExternalProviderID == providerID {
			user := user
			return &user, nil
		}
	}
	return nil, &NotFoundError{Message: "user not found"}
}

func (s *fakeUserStore) Save(_ context.Context, user *models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return &NotFoundError{Message: "user not found"}
	}
	s.users[user.ID] = *user
	return nil
}

type fakeOTPStore struct {
	codes []models.OTPCode
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{}
}

func (s *fakeOTPStore) DeleteByPurpose(_ context.Context, email string, purpose models.OTPPurpose) error {
	kept := s.codes[:0]
	for _, code := range s.codes {
		if code.Email == email && code.Purpose == purpose {
			continue
		}
		kept = append(kept, code)
	}
	s.codes = kept
	return nil
}

func (s *fakeOTPStore) Insert(_ context.Context, code *models.OTPCode) error {
	code.ID = primitive.NewObjectID()
	s.codes = append(s.codes, *code)
	return nil
}

func (s *fakeOTPStore) Consume(_ context.Context, email, code string, purpose models.OTPPurpose, now time.Time) error {
	for i, stored := range s.codes {
		if stored.Email == email && stored.Code == code && stored.Purpose == purpose && stored.ExpiresAt.After(now) {
			s.codes = append(s.codes[:i], s.codes[i+1:]...)
			return nil
		}
	}
	return &BadRequestError{Message: "invalid or expired code"}
}

// latest returns the newest stored code for (email, purpose), so tests
// can verify with the code the user would have received.
func (s *fakeOTPStore) latest(email string, purpose models.OTPPurpose) (models.OTPCode, bool) {
	for i := len(s.codes) - 1; i >= 0; i-- {
		if s.codes[i].Email == email && s.codes[i].Purpose == purpose {
			return s.codes[i], true
		}
	}
	return models.OTPCode{}, false
}

type fakeTokenStore struct {
	tokens map[string]models.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *fakeTokenStore) Insert(_ context.Context, token *models.RefreshToken) error {
	token.ID = primitive.NewObjectID()
	s.tokens[token.TokenHash] = *token
	return nil
}

func (s *fakeTokenStore) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	token, ok := s.tokens[hash]
	if !ok {
		return nil, &NotFoundError{Message: "refresh token not found"}
	}
	return &token, nil
}

func (s *fakeTokenStore) DeleteByHash(_ context.Context, hash string) error {
	delete(s.tokens, hash)
	return nil
}

func (s *fakeTokenStore) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	for hash, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, hash)
		}
	}
	return nil
}

func (s *fakeTokenStore) countForUser(userID primitive.ObjectID) int {
	count := 0
	for _, token := range s.tokens {
		if token.UserID == userID {
			count++
		}
	}
	return count
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, text, _ string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text})
	return nil
}

// brokenCache fails every operation; the service must shrug it off.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache unreachable")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache unreachable")
}

func (brokenCache) Delete(context.Context, string) error {
	return errors.New("cache unreachable")
}

type testEnv struct {
	svc    *Service
	users  *fakeUserStore
	otps   *fakeOTPStore
	tokens *fakeTokenStore
	mailer *recordingMailer
	cache  cache.Cache
}

func newTestEnv(t interface{ Fatalf(string, ...interface{}) }) *testEnv {
	users := newFakeUserStore()
	otps := newFakeOTPStore()
	tokens := newFakeTokenStore()
	mail := &recordingMailer{}
	memory := cache.NewMemory()

	svc, err := New(Options{
		Users:      users,
		OTPs:       otps,
		Tokens:     tokens,
		Cache:      memory,
		Mailer:     mail,
		JWTSecret:  "test-secret",
		AccessTTL:  7 * 24 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
		OTPTTL:     10 * time.Minute,
		CacheTTL:   time.Hour,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	return &testEnv{svc: svc, users: users, otps: otps, tokens: tokens, mailer: mail, cache: memory}
}
