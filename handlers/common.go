package handlers

import (
	"errors"
	"net/http"

	"trustlink/services/deviceauth"
	"trustlink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the request-scoped logger.
func getLogger(c *gin.Context) *zap.Logger {
	return utils.GetLogger()
}

// bearerToken extracts the bearer access token from the Authorization header.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return ""
	}
	return authHeader[len(prefix):]
}

// respondError maps a validation failure onto the protocol error response
// {error, error_description, ...extra}. Anything that is not a
// *deviceauth.ValidationError is an internal fault.
func respondError(c *gin.Context, err error) {
	var verr *deviceauth.ValidationError
	if !errors.As(err, &verr) {
		getLogger(c).Error("Validation failed unexpectedly", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "An unexpected error occurred. Please try again later.",
		})
		return
	}

	status := http.StatusBadRequest
	if verr.Kind == deviceauth.ErrorInvalidToken {
		status = http.StatusUnauthorized
	}

	body := gin.H{
		"error":             string(verr.Kind),
		"error_description": verr.Description,
	}
	for k, v := range verr.Extra {
		body[k] = v
	}
	c.JSON(status, body)
}
