package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/cache"
	"deliveryhub/internal/mailer"
	"deliveryhub/internal/models"
)

// Service implements the identity core: account lifecycle, credentials,
// OTP flows, token issuance, and the session cache. All collaborators
// are injected so tests can run against in-memory fakes.
type Service struct {
	users  UserStore
	otps   OTPStore
	tokens TokenStore
	cache  cache.Cache
	mailer mailer.Mailer

	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	otpTTL     time.Duration
	cacheTTL   time.Duration
}

type Options struct {
	Users  UserStore
	OTPs   OTPStore
	Tokens TokenStore
	Cache  cache.Cache
	Mailer mailer.Mailer

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OTPTTL     time.Duration
	CacheTTL   time.Duration
}

func New(opts Options) (*Service, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	return &Service{
		users:      opts.Users,
		otps:       opts.OTPs,
		tokens:     opts.Tokens,
		cache:      opts.Cache,
		mailer:     opts.Mailer,
		jwtSecret:  opts.JWTSecret,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		otpTTL:     opts.OTPTTL,
		cacheTTL:   opts.CacheTTL,
	}, nil
}

// Session is the result of any successful authentication path.
type Session struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.Role
}

// Register creates a new account and triggers email verification. The
// unique email index decides concurrent registrations for the same
// address; the loser observes *ConflictError.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, &BadRequestError{Message: "email is required"}
	}
	if !models.RegistrableRoles[input.Role] {
		return nil, &BadRequestError{Message: "role is not open to registration"}
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         input.Role,
		Addresses:    []models.Address{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.AttachRolePayload()

	if err := s.users.Insert(ctx, &user); err != nil {
		return nil, err
	}

	if err := s.issueOTP(ctx, email, models.OTPVerification); err != nil {
		log.Println("[AUTH] [ERROR] verification otp issue failed:", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Login authenticates by email and password. An inactive account fails
// regardless of credential correctness; verification state is not
// consulted here.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			return nil, &AuthenticationError{Message: "invalid credentials"}
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, &AuthenticationError{Message: "account is deactivated"}
	}
	if !checkPassword(password, user.PasswordHash) {
		return nil, &AuthenticationError{Message: "invalid credentials"}
	}

	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*Session, error) {
	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	s.cacheSet(ctx, &sanitized)

	return &Session{
		User:         sanitized,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GetUser reads a sanitized record through the session cache.
func (s *Service) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if cached := s.cacheGet(ctx, id); cached != nil {
		return cached, nil
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	s.cacheSet(ctx, &sanitized)
	return &sanitized, nil
}

// UpdateProfile applies caller-supplied fields to a record. Sensitive
// fields (password, email, role, verification flag, provider id) are
// silently stripped before applying; unknown keys are ignored.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	for _, key := range []string{"password", "passwordHash", "email", "role", "isEmailVerified", "isActive", "externalProviderId"} {
		delete(fields, key)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if value, ok := fields["name"].(string); ok && strings.TrimSpace(value) != "" {
		user.Name = strings.TrimSpace(value)
	}
	if value, ok := fields["phone"].(string); ok {
		user.Phone = strings.TrimSpace(value)
	}
	if value, ok := fields["profileImage"].(string); ok {
		user.ProfileImage = strings.TrimSpace(value)
	}

	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, id)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// SetActive flips the activation state. Verification state is untouched.
func (s *Service) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	user.IsActive = active
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)
	return nil
}

// ChangePassword verifies the current password, stores the new hash,
// and revokes every refresh token so all other sessions end.
func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !checkPassword(currentPassword, user.PasswordHash) {
		return &AuthenticationError{Message: "current password is incorrect"}
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, id)

	return s.revokeAllTokens(ctx, id)
}

// SendVerificationOTP issues a fresh verification code for an account
// that has not verified its email yet.
func (s *Service) SendVerificationOTP(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return &BadRequestError{Message: "email already verified"}
	}
	return s.issueOTP(ctx, user.Email, models.OTPVerification)
}

// VerifyEmail consumes a verification code and marks the account
// verified. Verification is one-directional.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if err := s.consumeOTP(ctx, email, code, models.OTPVerification); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	user.IsEmailVerified = true
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, user.ID)
	return nil
}

// ForgotPassword issues a reset code. An unknown email still reports
// success so the endpoint cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			log.Println("[AUTH] [INFO] password reset requested for unknown email")
			return nil
		}
		return err
	}
	return s.issueOTP(ctx, user.Email, models.OTPPasswordReset)
}

// ResetPassword consumes a reset code, stores the new hash, and revokes
// every refresh token for the account.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.consumeOTP(ctx, email, code, models.OTPPasswordReset); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, user.ID)

	return s.revokeAllTokens(ctx, user.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session cache helpers. The cache is an accelerator, never a source of
// truth: every failure below is logged and swallowed.

func userCacheKey(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}

func (s *Service) cacheGet(ctx context.Context, id primitive.ObjectID) *models.User {
	data, err := s.cache.Get(ctx, userCacheKey(id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Println("[CACHE] [ERROR] get failed:", err)
		}
		return nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		log.Println("[CACHE] [ERROR] decode failed:", err)
		return nil
	}
	return &user
}

func (s *Service) cacheSet(ctx context.Context, user *models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		log.Println("[CACHE] [ERROR] encode failed:", err)
		return
	}
	if err := s.cache.Set(ctx, userCacheKey(user.ID), data, s.cacheTTL); err != nil {
		log.Println("[CACHE] [ERROR] set failed:", err)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, id primitive.ObjectID) {
	if err := s.cache.Delete(ctx, userCacheKey(id)); err != nil {
		log.Println("[CACHE] [ERROR] delete failed:", err)
	}
}
