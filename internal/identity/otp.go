package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"deliveryhub/internal/models"
)

// issueOTP generates a fresh code for (email, purpose), replacing any
// prior code for the same pair, and asks the mailer to deliver it. The
// delete-then-insert pair is not atomic; the short TTL bounds the race
// and whichever code a verify call consumes first wins.
func (s *Service) issueOTP(ctx context.Context, email string, purpose models.OTPPurpose) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}

	if err := s.otps.DeleteByPurpose(ctx, email, purpose); err != nil {
		return err
	}

	now := time.Now()
	record := models.OTPCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.otps.Insert(ctx, &record); err != nil {
		return err
	}

	subject, text := otpMessage(code, purpose)
	if err := s.mailer.Send(ctx, email, subject, text, ""); err != nil {
		log.Println("[OTP] [ERROR] delivery failed:", err)
	}
	return nil
}

// consumeOTP validates and burns a code in one step.
func (s *Service) consumeOTP(ctx context.Context, email, code string, purpose models.OTPPurpose) error {
	return s.otps.Consume(ctx, email, code, purpose, time.Now())
}

// generateOTP returns a uniformly random 6-digit code, zero-padded.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func otpMessage(code string, purpose models.OTPPurpose) (subject, text string) {
	switch purpose {
	case models.OTPPasswordReset:
		return "Your password reset code",
			fmt.Sprintf("Use code %s to reset your password. It expires in 10 minutes.", code)
	default:
		return "Verify your email address",
			fmt.Sprintf("Use code %s to verify your email address. It expires in 10 minutes.", code)
	}
}
