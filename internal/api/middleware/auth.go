package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/jwt"
	"github.com/d60-Lab/fhe-content-hub/pkg/response"
)

const (
	addressKey   = "address"
	sessionIDKey = "session_id"
)

// SessionSource reports the wallet session currently bound to the directory.
type SessionSource interface {
	Session() *wallet.Session
}

// WalletAuth requires a bearer token issued for the currently connected
// wallet session. Tokens of a disconnected or replaced session are refused.
func WalletAuth(m *jwt.Manager, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.VerifyToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				response.Unauthorized(c, "token expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		s := sessions.Session()
		if s == nil || s.ID() != claims.SessionID {
			response.Unauthorized(c, "wallet session is not connected")
			c.Abort()
			return
		}

		c.Set(sessionIDKey, claims.SessionID)
		c.Set(addressKey, s.Address())
		c.Next()
	}
}

// GetAddress returns the wallet address of an authenticated request.
func GetAddress(c *gin.Context) string {
	return c.GetString(addressKey)
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
