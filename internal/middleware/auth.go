package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"slotkeeper/internal/pkg/jwt"
	"slotkeeper/internal/pkg/response"
)

const ClaimsKey = "manage_claims"

// ManageTokenAuth admits requests carrying a manage token for the booking
// named by the :remoteId route param. The token comes from the Authorization
// header or the token query parameter (websocket clients cannot set headers).
func ManageTokenAuth(tokens *jwt.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			logAuthFailure(log, c, http.StatusUnauthorized, "missing_token")
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Manage token is required")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logAuthFailure(log, c, http.StatusUnauthorized, "invalid_token")
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired manage token")
			c.Abort()
			return
		}

		if remoteID := c.Param("remoteId"); remoteID != "" && remoteID != claims.RemoteBookingID {
			logAuthFailure(log, c, http.StatusForbidden, "booking_mismatch")
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Token does not grant access to this booking")
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
