package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deliveryhub/internal/identity"
	"deliveryhub/internal/models"
)

const requestTimeout = 5 * time.Second

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type FederatedRequest struct {
	ProviderID string `json:"providerId" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
	Photo      string `json:"photo"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func Register(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := svc.Register(ctx, identity.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Role:     models.Role(req.Role),
		})
		if err != nil {
			respondError(c, "AUTH", err)
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"user":    user,
			"message": "registered, verification code sent",
		})
	}
}

func Login(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		session, err := svc.Login(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, "AUTH", err)
			return
		}

		log.Println("[AUTH] [INFO] login succeeded:", session.User.Email)
		c.JSON(http.StatusOK, gin.H{
			"user":         session.User,
			"accessToken":  session.AccessToken,
			"refreshToken": session.RefreshToken,
		})
	}
}

func FederatedLogin(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FederatedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		session, err := svc.FederatedLogin(ctx, identity.FederatedProfile{
			ProviderID: req.ProviderID,
			Email:      req.Email,
			Name:       req.Name,
			Photo:      req.Photo,
		})
		if err != nil {
			respondError(c, "AUTH", err)
			return
		}

		log.Println("[AUTH] [INFO] federated login succeeded:", session.User.Email)
		c.JSON(http.StatusOK, gin.H{
			"user":         session.User,
			"accessToken":  session.AccessToken,
			"refreshToken": session.RefreshToken,
		})
	}
}

func Refresh(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		accessToken, err := svc.Refresh(ctx, req.RefreshToken)
		if err != nil {
			respondError(c, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
	}
}

func Logout(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.Logout(ctx, req.RefreshToken); err != nil {
			respondError(c, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func SendVerificationOTP(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.SendVerificationOTP(ctx, req.Email); err != nil {
			respondError(c, "OTP", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
	}
}

func VerifyEmail(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.VerifyEmail(ctx, req.Email, req.Code); err != nil {
			respondError(c, "OTP", err)
			return
		}

		log.Println("[OTP] [INFO] email verified:", req.Email)
		c.JSON(http.StatusOK, gin.H{"message": "email verified"})
	}
}

func ForgotPassword(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.ForgotPassword(ctx, req.Email); err != nil {
			respondError(c, "OTP", err)
			return
		}

		// Same answer whether or not the account exists.
		c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset code was sent"})
	}
}

func ResetPassword(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.ResetPassword(ctx, req.Email, req.Code, req.NewPassword); err != nil {
			respondError(c, "OTP", err)
			return
		}

		log.Println("[OTP] [INFO] password reset:", req.Email)
		c.JSON(http.StatusOK, gin.H{"message": "password reset"})
	}
}

func ChangePassword(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	}
}
