package identity

import (
	"context"
	"testing"
	"time"

	"deliveryhub/internal/models"
)

func register(t *testing.T, env *testEnv, email string) *models.User {
	t.Helper()
	user, err := env.svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "correct-horse",
		Role:     models.RoleClient,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return user
}

func TestRegisterCreatesOneUser(t *testing.T) {
	env := newTestEnv(t)

	user := register(t, env, "a@x.com")
	if user.Email != "a@x.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash != "" {
		t.Fatal("expected sanitized user without password hash")
	}
	if user.Client == nil {
		t.Fatal("expected client variant payload to be attached")
	}
	if user.IsEmailVerified {
		t.Fatal("expected new account to start unverified")
	}
	if len(env.users.users) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(env.users.users))
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Name:     "Other",
		Email:    "A@X.com",
		Password: "another-pass",
		Role:     models.RoleBoutiqueOwner,
	})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(env.users.users) != 1 {
		t.Fatalf("expected no additional record, got %d", len(env.users.users))
	}
}

func TestRegisterRejectsClosedRoles(t *testing.T) {
	env := newTestEnv(t)

	for _, role := range []models.Role{models.RoleAdmin, models.RoleDeliveryManager, models.RoleAllBoutiquesManager, "bogus"} {
		_, err := env.svc.Register(context.Background(), RegisterInput{
			Name:     "Test",
			Email:    "admin@x.com",
			Password: "password123",
			Role:     role,
		})
		if !IsBadRequest(err) {
			t.Fatalf("expected BadRequestError for role %q, got %v", role, err)
		}
	}
}

func TestRegisterTriggersVerificationOTP(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	code, ok := env.otps.latest("a@x.com", models.OTPVerification)
	if !ok {
		t.Fatal("expected a verification code to be issued")
	}
	if len(code.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code.Code)
	}
	for _, r := range code.Code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code.Code)
		}
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("expected one delivery request, got %d", len(env.mailer.sent))
	}
}

func TestLoginSucceedsWhileUnverified(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	session, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if session.User.PasswordHash != "" {
		t.Fatal("expected sanitized user in session")
	}
}

func TestLoginBadPassword(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	_, err := env.svc.Login(context.Background(), "a@x.com", "wrong")
	if !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Login(context.Background(), "ghost@x.com", "whatever")
	if !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestLoginInactiveAccountFailsWithCorrectPassword(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	if err := env.svc.SetActive(context.Background(), user.ID, false); err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}

	_, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError for inactive account, got %v", err)
	}

	// Reactivation restores access; verification state is untouched.
	if err := env.svc.SetActive(context.Background(), user.ID, true); err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if _, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse"); err != nil {
		t.Fatalf("expected login after reactivation, got %v", err)
	}
}

func TestVerifyEmailScenario(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	code, ok := env.otps.latest("a@x.com", models.OTPVerification)
	if !ok {
		t.Fatal("expected a verification code")
	}

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}
	if err := env.svc.VerifyEmail(context.Background(), "a@x.com", wrong); !IsBadRequest(err) {
		t.Fatalf("expected BadRequestError for wrong code, got %v", err)
	}

	if err := env.svc.VerifyEmail(context.Background(), "a@x.com", code.Code); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	stored, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !stored.IsEmailVerified {
		t.Fatal("expected isEmailVerified=true after verification")
	}

	// The code is single-use.
	if err := env.svc.VerifyEmail(context.Background(), "a@x.com", code.Code); !IsBadRequest(err) {
		t.Fatalf("expected BadRequestError on reuse, got %v", err)
	}

	// And a verified account cannot request another verification code.
	if err := env.svc.SendVerificationOTP(context.Background(), "a@x.com"); !IsBadRequest(err) {
		t.Fatalf("expected BadRequestError for already-verified account, got %v", err)
	}
}

func TestSendVerificationOTPUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.SendVerificationOTP(context.Background(), "ghost@x.com"); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	first, _ := env.otps.latest("a@x.com", models.OTPVerification)

	if err := env.svc.SendVerificationOTP(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("SendVerificationOTP returned error: %v", err)
	}
	second, _ := env.otps.latest("a@x.com", models.OTPVerification)

	if first.Code != second.Code {
		if err := env.svc.VerifyEmail(context.Background(), "a@x.com", first.Code); !IsBadRequest(err) {
			t.Fatalf("expected prior code to be invalid, got %v", err)
		}
	}
	if err := env.svc.VerifyEmail(context.Background(), "a@x.com", second.Code); err != nil {
		t.Fatalf("expected latest code to verify, got %v", err)
	}
}

func TestExpiredOTPNeverValidates(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	// Replace the issued code with an already-expired one.
	env.otps.codes[0].ExpiresAt = time.Now().Add(-time.Minute)
	code := env.otps.codes[0].Code

	if err := env.svc.VerifyEmail(context.Background(), "a@x.com", code); !IsBadRequest(err) {
		t.Fatalf("expected BadRequestError for expired code, got %v", err)
	}
}

func TestForgotPasswordUnknownEmailReportsSuccess(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.ForgotPassword(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("expected success for unknown email, got %v", err)
	}
	if len(env.mailer.sent) != 0 {
		t.Fatal("expected no delivery for unknown email")
	}
}

func TestResetPasswordRevokesAllTokens(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	first, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.svc.ForgotPassword(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	code, ok := env.otps.latest("a@x.com", models.OTPPasswordReset)
	if !ok {
		t.Fatal("expected a reset code")
	}

	if err := env.svc.ResetPassword(context.Background(), "a@x.com", code.Code, "new-password-1"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	if count := env.tokens.countForUser(user.ID); count != 0 {
		t.Fatalf("expected zero refresh tokens after reset, got %d", count)
	}
	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := env.svc.Refresh(context.Background(), token); !IsAuthentication(err) {
			t.Fatalf("expected AuthenticationError for revoked token, got %v", err)
		}
	}

	if _, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse"); !IsAuthentication(err) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := env.svc.Login(context.Background(), "a@x.com", "new-password-1"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestResetPasswordBadCode(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	err := env.svc.ResetPassword(context.Background(), "a@x.com", "123456", "new-password-1")
	if !IsBadRequest(err) {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
}

func TestChangePasswordRevokesAllTokens(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	session, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.svc.ChangePassword(context.Background(), user.ID, "wrong", "new-password-1"); !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError for wrong current password, got %v", err)
	}

	if err := env.svc.ChangePassword(context.Background(), user.ID, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if count := env.tokens.countForUser(user.ID); count != 0 {
		t.Fatalf("expected zero refresh tokens after change, got %d", count)
	}
	if _, err := env.svc.Refresh(context.Background(), session.RefreshToken); !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError after change, got %v", err)
	}
}

func TestRefreshLogoutScenario(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	session, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	accessToken, err := env.svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if accessToken == "" {
		t.Fatal("expected a fresh access token")
	}

	// No rotation: the same refresh token keeps working.
	if _, err := env.svc.Refresh(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("expected refresh token to remain valid, got %v", err)
	}

	if err := env.svc.Logout(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	// Logout is idempotent.
	if err := env.svc.Logout(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("second Logout returned error: %v", err)
	}

	if _, err := env.svc.Refresh(context.Background(), session.RefreshToken); !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError after logout, got %v", err)
	}
}

func TestRefreshExpiredTokenDeletedLazily(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.com")

	session, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	hash := hashToken(session.RefreshToken)
	record := env.tokens.tokens[hash]
	record.ExpiresAt = time.Now().Add(-time.Minute)
	env.tokens.tokens[hash] = record

	if _, err := env.svc.Refresh(context.Background(), session.RefreshToken); !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError for expired token, got %v", err)
	}
	if _, ok := env.tokens.tokens[hash]; ok {
		t.Fatal("expected expired token to be deleted on use")
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.Refresh(context.Background(), "never-issued"); !IsAuthentication(err) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestUpdateProfileStripsSensitiveFields(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	updated, err := env.svc.UpdateProfile(context.Background(), user.ID, map[string]interface{}{
		"name":               "New Name",
		"phone":              "555-0100",
		"profileImage":       "https://cdn/x.png",
		"email":              "evil@x.com",
		"role":               string(models.RoleAdmin),
		"password":           "sneaky",
		"isEmailVerified":    true,
		"externalProviderId": "fake-provider",
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}

	if updated.Name != "New Name" || updated.Phone != "555-0100" {
		t.Fatalf("expected profile fields applied, got %+v", updated)
	}
	if updated.Email != "a@x.com" {
		t.Fatalf("expected email unchanged, got %q", updated.Email)
	}
	if updated.Role != models.RoleClient {
		t.Fatalf("expected role unchanged, got %q", updated.Role)
	}
	if updated.IsEmailVerified {
		t.Fatal("expected verification flag unchanged")
	}
	if updated.ExternalProviderID != "" {
		t.Fatal("expected provider id unchanged")
	}

	// The old password still authenticates.
	if _, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse"); err != nil {
		t.Fatalf("expected original password to keep working, got %v", err)
	}
}

func TestGetUserCacheAside(t *testing.T) {
	env := newTestEnv(t)
	user := register(t, env, "a@x.com")

	first, err := env.svc.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if first.PasswordHash != "" {
		t.Fatal("expected sanitized record from read path")
	}

	// Mutate behind the cache; the stale value is served until invalidated.
	stored := env.users.users[user.ID]
	stored.Name = "Changed Behind Cache"
	env.users.users[user.ID] = stored

	cached, err := env.svc.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if cached.Name != first.Name {
		t.Fatalf("expected cached name %q, got %q", first.Name, cached.Name)
	}

	// A service-driven mutation invalidates the entry.
	if _, err := env.svc.UpdateProfile(context.Background(), user.ID, map[string]interface{}{"name": "Fresh Name"}); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	fresh, err := env.svc.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if fresh.Name != "Fresh Name" {
		t.Fatalf("expected fresh name after invalidation, got %q", fresh.Name)
	}
}

func TestBrokenCacheNeverFailsOperations(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cache = brokenCache{}

	user := register(t, env, "a@x.com")

	if _, err := env.svc.Login(context.Background(), "a@x.com", "correct-horse"); err != nil {
		t.Fatalf("Login should tolerate cache failure, got %v", err)
	}
	if _, err := env.svc.GetUser(context.Background(), user.ID); err != nil {
		t.Fatalf("GetUser should tolerate cache failure, got %v", err)
	}
	if _, err := env.svc.UpdateProfile(context.Background(), user.ID, map[string]interface{}{"name": "Still Works"}); err != nil {
		t.Fatalf("UpdateProfile should tolerate cache failure, got %v", err)
	}
}

func TestNewRequiresSigningSecret(t *testing.T) {
	_, err := New(Options{JWTSecret: ""})
	if err == nil {
		t.Fatal("expected error for missing signing secret")
	}
}
