package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/response"
)

const (
	// ContextKeyDeviceID is the gin context key for the authenticated device
	ContextKeyDeviceID = "device_id"
	// ContextKeyOperatorID is the gin context key for the authenticated operator
	ContextKeyOperatorID = "operator_id"
)

// DeviceClaims are the claims carried by a scanner device token
type DeviceClaims struct {
	DeviceID   string `json:"device_id"`
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

// AuthConfig holds device token verification settings
type AuthConfig struct {
	Secret string
	Issuer string
}

// DeviceAuth verifies scanner device tokens. Internal endpoints sit behind
// the gateway, so this is only enabled when the deployment requires it.
func DeviceAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.AbortError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authorization header must be a Bearer token")
			return
		}

		claims := &DeviceClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(cfg.Secret), nil
		}, jwt.WithIssuer(cfg.Issuer))
		if err != nil || !token.Valid {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}

		c.Set(ContextKeyDeviceID, claims.DeviceID)
		c.Set(ContextKeyOperatorID, claims.OperatorID)
		c.Next()
	}
}

// GetDeviceID extracts the authenticated device ID from gin context
func GetDeviceID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyDeviceID)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetOperatorID extracts the authenticated operator ID from gin context
func GetOperatorID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyOperatorID)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
