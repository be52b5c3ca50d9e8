package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"deliveryhub/internal/identity"
)

// respondError maps the identity error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is an internal error and its detail
// stays in the log.
func respondError(c *gin.Context, route string, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case identity.IsConflict(err):
		status = http.StatusConflict
		message = err.Error()
	case identity.IsAuthentication(err):
		status = http.StatusUnauthorized
		message = err.Error()
	case identity.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case identity.IsBadRequest(err):
		status = http.StatusBadRequest
		message = err.Error()
	}

	log.Printf("[%s] [ERROR] returning %d: %v", route, status, err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
