package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"deliveryhub/internal/identity"
)

type addressRequest struct {
	Title     string `json:"title" binding:"required"`
	Detail    string `json:"detail" binding:"required"`
	Note      string `json:"note"`
	IsDefault bool   `json:"isDefault"`
}

type activeRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		log.Println("[AUTH] [ERROR] userId missing in context")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// GetMe reads the caller's sanitized record through the session cache.
func GetMe(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := svc.GetUser(ctx, userID)
		if err != nil {
			respondError(c, "USER", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// UpdateProfile forwards the raw field map; the service strips anything
// sensitive before applying.
func UpdateProfile(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := svc.UpdateProfile(ctx, userID, fields)
		if err != nil {
			respondError(c, "USER", err)
			return
		}

		log.Println("[USER] [INFO] profile updated:", user.Email)
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// SetActive lets a user deactivate or reactivate their own account.
func SetActive(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req activeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.SetActive(ctx, userID, *req.IsActive); err != nil {
			respondError(c, "USER", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "account updated"})
	}
}

func GetAddresses(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := svc.GetUser(ctx, userID)
		if err != nil {
			respondError(c, "ADDRESS", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": user.Addresses})
	}
}

func CreateAddress(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		address, err := svc.AddAddress(ctx, userID, identity.AddressInput{
			Title:     req.Title,
			Detail:    req.Detail,
			Note:      req.Note,
			IsDefault: req.IsDefault,
		})
		if err != nil {
			respondError(c, "ADDRESS", err)
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		c.JSON(http.StatusCreated, gin.H{"address": address})
	}
}

func UpdateAddress(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		address, err := svc.UpdateAddress(ctx, userID, addressID, identity.AddressInput{
			Title:     req.Title,
			Detail:    req.Detail,
			Note:      req.Note,
			IsDefault: req.IsDefault,
		})
		if err != nil {
			respondError(c, "ADDRESS", err)
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID)
		c.JSON(http.StatusOK, gin.H{"address": address})
	}
}

func DeleteAddress(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.DeleteAddress(ctx, userID, addressID); err != nil {
			respondError(c, "ADDRESS", err)
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}
